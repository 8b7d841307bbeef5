// Package db - persistence layer
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/kaviselvaram-dev/docvault/models"
	"gorm.io/gorm"
)

// ErrDuplicateEmail returned when a signup reuses an existing email
var ErrDuplicateEmail = errors.New("email already registered")

// ErrNotFound returned when a requested entry does not exist
var ErrNotFound = errors.New("entry not found")

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// AuditEventQueryFilter audit event query filter conditions
type AuditEventQueryFilter struct {
	CommonListEntryQueryFilter
	// Actions the specific actions to query for
	Actions []models.AuditActionENUMType
	// TargetUserID filter for events of this user
	TargetUserID *string
	// EventsAfter filter for events after this timestamp
	EventsAfter *time.Time
	// EventsBefore filter for events before this timestamp
	EventsBefore *time.Time
}

// DocumentQueryFilter document query filter conditions
type DocumentQueryFilter struct {
	CommonListEntryQueryFilter
}

// NewDocumentParams parameters for registering a new document
//
// The stored name is caller generated; the registry never invents blob
// store keys on its own.
type NewDocumentParams struct {
	// OwnerID the owning user
	OwnerID string `validate:"required,uuid_rfc4122"`
	// Filename sanitized display name
	Filename string `validate:"required"`
	// StoredName the opaque blob store key
	StoredName string `validate:"required"`
	// Category free text label, empty defaults to models.DefaultCategory
	Category string
	// ExpiryDate optional expiry calendar date
	ExpiryDate *time.Time
	// ReminderAt optional reminder instant in UTC
	ReminderAt *time.Time
	// EncNonce the nonce used to encrypt the document payload
	EncNonce []byte `validate:"required"`
}

// Database the database handle to interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// Users

	/*
		CreateUser register a new user

			@param ctx context.Context - execution context
			@param email string - unique login email
			@param passwordHash string - salted credential hash
			@returns the user entry
	*/
	CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error)

	/*
		GetUser fetch a user by ID

			@param ctx context.Context - execution context
			@param userID string - user ID
			@returns user entry
	*/
	GetUser(ctx context.Context, userID string) (models.User, error)

	/*
		GetUserByEmail fetch a user by email

			@param ctx context.Context - execution context
			@param email string - user email
			@returns user entry
	*/
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// ------------------------------------------------------------------------------------
	// Documents

	/*
		DefineNewDocument register a new document

			@param ctx context.Context - execution context
			@param params NewDocumentParams - document parameters
			@returns document entry
	*/
	DefineNewDocument(ctx context.Context, params NewDocumentParams) (models.Document, error)

	/*
		GetDocument fetch a document by ID

			@param ctx context.Context - execution context
			@param docID string - document ID
			@returns document entry
	*/
	GetDocument(ctx context.Context, docID string) (models.Document, error)

	/*
		ListDocumentsByOwner list documents belonging to one user

			@param ctx context.Context - execution context
			@param ownerID string - the owning user ID
			@param filters DocumentQueryFilter - entry listing filter
			@return list of documents
	*/
	ListDocumentsByOwner(
		ctx context.Context, ownerID string, filters DocumentQueryFilter,
	) ([]models.Document, error)

	/*
		ListDocumentsExpiringWithin list one user's documents whose expiry date falls
		within [today, today+days], today computed in UTC

			@param ctx context.Context - execution context
			@param ownerID string - the owning user ID
			@param days int - lookahead window in days
			@return list of documents
	*/
	ListDocumentsExpiringWithin(
		ctx context.Context, ownerID string, days int,
	) ([]models.Document, error)

	/*
		ListDocumentsWithDueReminders list documents whose reminder timestamp falls
		within [now-windowBefore, now+windowAfter]

			@param ctx context.Context - execution context
			@param now time.Time - reference instant
			@param windowBefore time.Duration - window reach into the past
			@param windowAfter time.Duration - window reach into the future
			@return list of documents
	*/
	ListDocumentsWithDueReminders(
		ctx context.Context, now time.Time, windowBefore, windowAfter time.Duration,
	) ([]models.Document, error)

	/*
		DeleteDocument delete a document registry entry

			@param ctx context.Context - execution context
			@param docID string - document ID
	*/
	DeleteDocument(ctx context.Context, docID string) error

	// ------------------------------------------------------------------------------------
	// Audit events

	/*
		RecordAuditEvent append a new audit event

			@param ctx context.Context - execution context
			@param userID string - the acting user
			@param action models.AuditActionENUMType - audit action type
			@param metadata interface{} - optional metadata for the event
			@returns the audit entry
	*/
	RecordAuditEvent(
		ctx context.Context,
		userID string,
		action models.AuditActionENUMType,
		metadata interface{},
	) (models.AuditEvent, error)

	/*
		ListAuditEvents list captured audit events

			@param ctx context.Context - execution context
			@param filters AuditEventQueryFilter - entry listing filter
			@return list of audit events
	*/
	ListAuditEvents(ctx context.Context, filters AuditEventQueryFilter) ([]models.AuditEvent, error)
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "docvault", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
