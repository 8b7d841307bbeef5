// Package models - system data models
package models

import "time"

// User a registered vault user
type User struct {
	// ID user ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// Email unique login email, stored case-sensitive
	Email string `json:"email" gorm:"column:email;not null;unique" validate:"required,email"`

	// PasswordHash salted bcrypt hash of the user credential
	PasswordHash string `json:"-" gorm:"column:password_hash;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
