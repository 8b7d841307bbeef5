package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestDocumentManagement(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/docvault_ut_%s.db", ulid.Make().String())
	log.Debugf("Using %s", testDB)

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	var owner models.User
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.CreateUser(
			ctx, fmt.Sprintf("%s@unit-testing.dev", uuid.NewString()), "credential-hash",
		)
		assert.Nil(err)
		owner = entry
		return nil
	}))

	// Case 0: owner parameter is required to be a UUID
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.DefineNewDocument(ctx, db.NewDocumentParams{
			OwnerID:    "not-a-uuid",
			Filename:   "passport.pdf",
			StoredName: uuid.NewString() + ".bin",
			EncNonce:   []byte("0123456789ab"),
		})
		assert.Error(err)
		return nil
	}))

	// Case 1: register a document without a category
	var doc1 models.Document
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.DefineNewDocument(ctx, db.NewDocumentParams{
			OwnerID:    owner.ID,
			Filename:   "passport.pdf",
			StoredName: uuid.NewString() + ".bin",
			EncNonce:   []byte("0123456789ab"),
		})
		assert.Nil(err)
		assert.Equal(models.DefaultCategory, entry.Category)
		doc1 = entry
		return nil
	}))

	// Case 2: read the document back
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.GetDocument(ctx, doc1.ID)
		assert.Nil(err)
		assert.Equal(doc1.Filename, entry.Filename)
		assert.Equal(doc1.StoredName, entry.StoredName)
		assert.Equal(doc1.EncNonce, entry.EncNonce)
		assert.Nil(entry.ExpiryDate)
		assert.Nil(entry.ReminderAt)
		return nil
	}))

	// Case 3: a second document with a category and dates
	expiry := time.Now().UTC().AddDate(0, 0, 3)
	reminder := time.Now().UTC().Add(time.Hour)
	var doc2 models.Document
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.DefineNewDocument(ctx, db.NewDocumentParams{
			OwnerID:    owner.ID,
			Filename:   "insurance.pdf",
			StoredName: uuid.NewString() + ".bin",
			Category:   "Insurance",
			ExpiryDate: &expiry,
			ReminderAt: &reminder,
			EncNonce:   []byte("ba9876543210"),
		})
		assert.Nil(err)
		assert.Equal("Insurance", entry.Category)
		doc2 = entry
		return nil
	}))

	// Case 4: listing by owner returns both, another user sees nothing
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListDocumentsByOwner(ctx, owner.ID, db.DocumentQueryFilter{})
		assert.Nil(err)
		assert.Len(entries, 2)

		entries, err = dbClient.ListDocumentsByOwner(ctx, uuid.NewString(), db.DocumentQueryFilter{})
		assert.Nil(err)
		assert.Empty(entries)
		return nil
	}))

	// Case 5: delete one document
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		assert.Nil(dbClient.DeleteDocument(ctx, doc1.ID))

		_, err := dbClient.GetDocument(ctx, doc1.ID)
		assert.ErrorIs(err, db.ErrNotFound)

		entries, err := dbClient.ListDocumentsByOwner(ctx, owner.ID, db.DocumentQueryFilter{})
		assert.Nil(err)
		assert.Len(entries, 1)
		assert.Equal(doc2.ID, entries[0].ID)
		return nil
	}))

	// Case 6: deleting an unknown document must fail
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		assert.ErrorIs(dbClient.DeleteDocument(ctx, uuid.NewString()), db.ErrNotFound)
		return nil
	}))
}

func TestDocumentExpiryLookahead(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/docvault_ut_%s.db", ulid.Make().String())
	log.Debugf("Using %s", testDB)

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	var owner models.User
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.CreateUser(
			ctx, fmt.Sprintf("%s@unit-testing.dev", uuid.NewString()), "credential-hash",
		)
		assert.Nil(err)
		owner = entry
		return nil
	}))

	defineDoc := func(filename string, expiry *time.Time) {
		assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.DefineNewDocument(ctx, db.NewDocumentParams{
				OwnerID:    owner.ID,
				Filename:   filename,
				StoredName: uuid.NewString() + ".bin",
				ExpiryDate: expiry,
				EncNonce:   []byte("0123456789ab"),
			})
			return err
		}))
	}

	now := time.Now().UTC()
	inThree := now.AddDate(0, 0, 3)
	inTen := now.AddDate(0, 0, 10)
	lastWeek := now.AddDate(0, 0, -7)

	defineDoc("due-soon.pdf", &inThree)
	defineDoc("due-later.pdf", &inTen)
	defineDoc("already-expired.pdf", &lastWeek)
	defineDoc("no-expiry.pdf", nil)

	// 1 – A seven day lookahead only catches the document due in three days
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListDocumentsExpiringWithin(ctx, owner.ID, 7)
		assert.Nil(err)
		assert.Len(entries, 1)
		assert.Equal("due-soon.pdf", entries[0].Filename)
		return nil
	}))

	// 2 – A wider lookahead catches both future documents, ordered by expiry
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListDocumentsExpiringWithin(ctx, owner.ID, 30)
		assert.Nil(err)
		assert.Len(entries, 2)
		assert.Equal("due-soon.pdf", entries[0].Filename)
		assert.Equal("due-later.pdf", entries[1].Filename)
		return nil
	}))

	// 3 – Expired and undated documents never appear
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListDocumentsExpiringWithin(ctx, owner.ID, 0)
		assert.Nil(err)
		assert.Empty(entries)
		return nil
	}))
}

func TestDocumentDueReminderQuery(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/docvault_ut_%s.db", ulid.Make().String())
	log.Debugf("Using %s", testDB)

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	var owner models.User
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.CreateUser(
			ctx, fmt.Sprintf("%s@unit-testing.dev", uuid.NewString()), "credential-hash",
		)
		assert.Nil(err)
		owner = entry
		return nil
	}))

	defineDoc := func(filename string, reminder *time.Time) {
		assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.DefineNewDocument(ctx, db.NewDocumentParams{
				OwnerID:    owner.ID,
				Filename:   filename,
				StoredName: uuid.NewString() + ".bin",
				ReminderAt: reminder,
				EncNonce:   []byte("0123456789ab"),
			})
			return err
		}))
	}

	now := time.Now().UTC()
	within := now.Add(time.Second * 30)
	justPassed := now.Add(-time.Second * 30)
	farFuture := now.Add(time.Hour)
	farPast := now.Add(-time.Hour)

	defineDoc("upcoming.pdf", &within)
	defineDoc("just-passed.pdf", &justPassed)
	defineDoc("far-future.pdf", &farFuture)
	defineDoc("far-past.pdf", &farPast)
	defineDoc("no-reminder.pdf", nil)

	// Only the two reminders inside the one minute window are due
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entries, err := dbClient.ListDocumentsWithDueReminders(ctx, now, time.Minute, time.Minute)
		assert.Nil(err)
		assert.Len(entries, 2)
		assert.Equal("just-passed.pdf", entries[0].Filename)
		assert.Equal("upcoming.pdf", entries[1].Filename)
		return nil
	}))
}
