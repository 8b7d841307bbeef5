package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// AuditActionENUMType audit action ENUM value type
type AuditActionENUMType string

const (
	// AuditActionSignup a new user registered
	AuditActionSignup AuditActionENUMType = "SIGNUP"

	// AuditActionLogin a user logged in
	AuditActionLogin AuditActionENUMType = "LOGIN"

	// AuditActionUpload a document was uploaded
	AuditActionUpload AuditActionENUMType = "UPLOAD"

	// AuditActionDownload a document was downloaded
	AuditActionDownload AuditActionENUMType = "DOWNLOAD"

	// AuditActionDelete a document was deleted
	AuditActionDelete AuditActionENUMType = "DELETE"

	// AuditActionReminderSent a reminder notification was delivered
	AuditActionReminderSent AuditActionENUMType = "REMINDER_SENT"

	// AuditActionSummaryExport a document summary was exported
	AuditActionSummaryExport AuditActionENUMType = "SUMMARY_EXPORT"
)

// AuditEvent append-only recording of user-level events
//
// Entries are write-only from the core's perspective; nothing updates or
// deletes them.
type AuditEvent struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// UserID the acting user
	UserID string `json:"user_id" gorm:"column:user_id;not null" validate:"required,uuid_rfc4122"`
	// Action audit action type
	Action AuditActionENUMType `json:"action" gorm:"column:action;not null" validate:"required,audit_action"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the action type
func (a AuditEvent) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.Action {
	// Document related audit events
	case AuditActionUpload:
		fallthrough
	case AuditActionDownload:
		fallthrough
	case AuditActionDelete:
		fallthrough
	case AuditActionReminderSent:
		var parsed AuditEventDocumentRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("audit event '%s' metadata parse failed [%w]", a.Action, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// AuditEventDocumentRelated audit event metadata related to one document
type AuditEventDocumentRelated struct {
	// DocumentID the document ID
	DocumentID string `json:"document_id" validate:"required,uuid_rfc4122"`
	// Filename the document display name
	Filename string `json:"filename" validate:"required"`
}
