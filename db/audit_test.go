package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestAuditEventRecording(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/docvault_ut_%s.db", ulid.Make().String())
	log.Debugf("Using %s", testDB)

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))

	var user1, user2 models.User
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		for _, target := range []*models.User{&user1, &user2} {
			entry, err := dbClient.CreateUser(
				ctx, fmt.Sprintf("%s@unit-testing.dev", uuid.NewString()), "credential-hash",
			)
			assert.Nil(err)
			*target = entry
		}
		return nil
	}))

	// Case 0: unsupported action value is rejected
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.RecordAuditEvent(
			ctx, user1.ID, models.AuditActionENUMType("NOT_AN_ACTION"), nil,
		)
		assert.Error(err)
		return nil
	}))

	// Case 1: record an event without metadata
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.RecordAuditEvent(ctx, user1.ID, models.AuditActionSignup, nil)
		assert.Nil(err)
		assert.NotEmpty(entry.ID)
		assert.Empty(entry.Metadata)
		return nil
	}))

	// Case 2: record document related events, for both users
	docID := uuid.NewString()
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.RecordAuditEvent(
			ctx, user1.ID, models.AuditActionUpload, &models.AuditEventDocumentRelated{
				DocumentID: docID, Filename: "passport.pdf",
			},
		)
		assert.Nil(err)

		_, err = dbClient.RecordAuditEvent(
			ctx, user2.ID, models.AuditActionDownload, &models.AuditEventDocumentRelated{
				DocumentID: uuid.NewString(), Filename: "insurance.pdf",
			},
		)
		assert.Nil(err)
		return nil
	}))

	// Case 3: invalid metadata is rejected
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.RecordAuditEvent(
			ctx, user1.ID, models.AuditActionUpload, &models.AuditEventDocumentRelated{
				DocumentID: "not-a-uuid", Filename: "passport.pdf",
			},
		)
		assert.Error(err)
		return nil
	}))

	// Case 4: list everything
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListAuditEvents(ctx, db.AuditEventQueryFilter{})
		assert.Nil(err)
		assert.Len(entries, 3)
		return nil
	}))

	// Case 5: filter by user
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListAuditEvents(ctx, db.AuditEventQueryFilter{
			TargetUserID: &user2.ID,
		})
		assert.Nil(err)
		assert.Len(entries, 1)
		assert.Equal(models.AuditActionDownload, entries[0].Action)
		return nil
	}))

	// Case 6: filter by action, and parse the metadata back
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListAuditEvents(ctx, db.AuditEventQueryFilter{
			Actions: []models.AuditActionENUMType{models.AuditActionUpload},
		})
		assert.Nil(err)
		assert.Len(entries, 1)

		parsed, err := entries[0].ParseMetadata(validate)
		assert.Nil(err)
		metadata, ok := parsed.(models.AuditEventDocumentRelated)
		assert.True(ok)
		assert.Equal(docID, metadata.DocumentID)
		assert.Equal("passport.pdf", metadata.Filename)
		return nil
	}))
}
