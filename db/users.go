package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kaviselvaram-dev/docvault/models"
	"gorm.io/gorm"
)

// ======================================================================================
// Users

/*
CreateUser register a new user

	@param ctx context.Context - execution context
	@param email string - unique login email
	@param passwordHash string - salted credential hash
	@returns the user entry
*/
func (d *databaseImpl) CreateUser(
	_ context.Context, email string, passwordHash string,
) (models.User, error) {
	newEntry := UserDBEntry{
		User: models.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: passwordHash,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.User{}, fmt.Errorf("new user '%s' is not valid [%w]", email, err)
	}

	// The unique constraint arbitrates concurrent signups
	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		if errors.Is(tmp.Error, gorm.ErrDuplicatedKey) {
			return models.User{}, fmt.Errorf(
				"user '%s' already exists [%w]", email, ErrDuplicateEmail,
			)
		}
		return models.User{}, fmt.Errorf("new user '%s' failed insert [%w]", email, tmp.Error)
	}

	return newEntry.User, nil
}

/*
GetUser fetch a user by ID

	@param ctx context.Context - execution context
	@param userID string - user ID
	@returns user entry
*/
func (d *databaseImpl) GetUser(_ context.Context, userID string) (models.User, error) {
	var entry UserDBEntry
	if tmp := d.db.Where("id = ?", userID).First(&entry); tmp.Error != nil {
		if errors.Is(tmp.Error, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("user %s unknown [%w]", userID, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("failed to fetch user %s [%w]", userID, tmp.Error)
	}

	return entry.User, nil
}

/*
GetUserByEmail fetch a user by email

	@param ctx context.Context - execution context
	@param email string - user email
	@returns user entry
*/
func (d *databaseImpl) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	var entry UserDBEntry
	if tmp := d.db.Where("email = ?", email).First(&entry); tmp.Error != nil {
		if errors.Is(tmp.Error, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("user '%s' unknown [%w]", email, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("failed to fetch user '%s' [%w]", email, tmp.Error)
	}

	return entry.User, nil
}
