package db

import "github.com/kaviselvaram-dev/docvault/models"

// --------------------------------------------------------------------------------------
// Users

// UserDBEntry user DB entry
type UserDBEntry struct {
	models.User
}

// TableName hard code table name
func (UserDBEntry) TableName() string {
	return "users"
}

// --------------------------------------------------------------------------------------
// Documents

// DocumentDBEntry document DB entry
type DocumentDBEntry struct {
	models.Document
	Owner UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID" validate:"-"`
}

// TableName hard code table name
func (DocumentDBEntry) TableName() string {
	return "documents"
}

// --------------------------------------------------------------------------------------
// Audit events

// AuditEventDBEntry audit event DB entry
type AuditEventDBEntry struct {
	models.AuditEvent
}

// TableName hard code table name
func (AuditEventDBEntry) TableName() string {
	return "audit_events"
}
