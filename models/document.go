package models

import "time"

// DefaultCategory category applied when an upload does not name one
const DefaultCategory = "General"

// Document one uploaded file held by the vault
//
// The blob store only ever sees `StoredName`; the user only ever sees
// `Filename`. The encryption nonce lives here, not with the ciphertext,
// as it is required for decryption and must never repeat under the
// process encryption key.
type Document struct {
	// ID document ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// OwnerID the owning user
	OwnerID string `json:"owner_id" gorm:"column:owner_id;not null" validate:"required,uuid_rfc4122"`

	// Filename user supplied display name, sanitized of path components
	Filename string `json:"filename" gorm:"column:filename;not null" validate:"required"`

	// StoredName server generated opaque blob store key
	StoredName string `json:"-" gorm:"column:stored_name;not null;unique" validate:"required"`

	// Category free text label
	Category string `json:"category" gorm:"column:category;not null" validate:"required"`

	// ExpiryDate optional calendar date the document expires, no time component
	ExpiryDate *time.Time `json:"expiry_date,omitempty" gorm:"column:expiry_date;default:null"`

	// ReminderAt optional reminder instant in UTC
	ReminderAt *time.Time `json:"reminder_at,omitempty" gorm:"column:reminder_at;default:null"`

	// EncNonce the encryption nonce used for this document's ciphertext
	EncNonce []byte `json:"-" gorm:"column:enc_nonce;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
