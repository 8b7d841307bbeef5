package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kaviselvaram-dev/docvault/models"
	"gorm.io/gorm"
)

// ======================================================================================
// Documents

/*
DefineNewDocument register a new document

	@param ctx context.Context - execution context
	@param params NewDocumentParams - document parameters
	@returns document entry
*/
func (d *databaseImpl) DefineNewDocument(
	_ context.Context, params NewDocumentParams,
) (models.Document, error) {
	if err := d.validator.Struct(&params); err != nil {
		return models.Document{}, fmt.Errorf(
			"new document '%s' parameters are not valid [%w]", params.Filename, err,
		)
	}

	category := params.Category
	if category == "" {
		category = models.DefaultCategory
	}

	newEntry := DocumentDBEntry{
		Document: models.Document{
			ID:         uuid.NewString(),
			OwnerID:    params.OwnerID,
			Filename:   params.Filename,
			StoredName: params.StoredName,
			Category:   category,
			ExpiryDate: params.ExpiryDate,
			ReminderAt: params.ReminderAt,
			EncNonce:   params.EncNonce,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.Document{}, fmt.Errorf(
			"new document '%s' is not valid [%w]", params.Filename, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.Document{}, fmt.Errorf(
			"new document '%s' failed insert [%w]", params.Filename, tmp.Error,
		)
	}

	return newEntry.Document, nil
}

// getDocumentEntry find a document by ID
func (d *databaseImpl) getDocumentEntry(docID string) (DocumentDBEntry, error) {
	var entry DocumentDBEntry
	err := d.db.Where("id = ?", docID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("document %s unknown [%w]", docID, ErrNotFound)
	}
	return entry, err
}

/*
GetDocument fetch a document by ID

	@param ctx context.Context - execution context
	@param docID string - document ID
	@returns document entry
*/
func (d *databaseImpl) GetDocument(_ context.Context, docID string) (models.Document, error) {
	entry, err := d.getDocumentEntry(docID)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to fetch document %s [%w]", docID, err)
	}

	return entry.Document, nil
}

/*
ListDocumentsByOwner list documents belonging to one user

	@param ctx context.Context - execution context
	@param ownerID string - the owning user ID
	@param filters DocumentQueryFilter - entry listing filter
	@return list of documents
*/
func (d *databaseImpl) ListDocumentsByOwner(
	_ context.Context, ownerID string, filters DocumentQueryFilter,
) ([]models.Document, error) {
	query := d.db.Model(&DocumentDBEntry{}).Where("owner_id = ?", ownerID)

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at desc")

	var entries []DocumentDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list documents of user %s [%w]", ownerID, tmp.Error)
	}

	result := []models.Document{}
	for _, entry := range entries {
		result = append(result, entry.Document)
	}

	return result, nil
}

/*
ListDocumentsExpiringWithin list one user's documents whose expiry date falls
within [today, today+days], today computed in UTC

	@param ctx context.Context - execution context
	@param ownerID string - the owning user ID
	@param days int - lookahead window in days
	@return list of documents
*/
func (d *databaseImpl) ListDocumentsExpiringWithin(
	_ context.Context, ownerID string, days int,
) ([]models.Document, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// Horizon is inclusive of the final day
	horizon := today.AddDate(0, 0, days).Add(time.Hour*24 - time.Nanosecond)

	var entries []DocumentDBEntry
	if tmp := d.db.
		Where("owner_id = ?", ownerID).
		Where("expiry_date IS NOT NULL").
		Where("expiry_date >= ? AND expiry_date <= ?", today, horizon).
		Order("expiry_date").
		Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf(
			"failed to list expiring documents of user %s [%w]", ownerID, tmp.Error,
		)
	}

	result := []models.Document{}
	for _, entry := range entries {
		result = append(result, entry.Document)
	}

	return result, nil
}

/*
ListDocumentsWithDueReminders list documents whose reminder timestamp falls
within [now-windowBefore, now+windowAfter]

	@param ctx context.Context - execution context
	@param now time.Time - reference instant
	@param windowBefore time.Duration - window reach into the past
	@param windowAfter time.Duration - window reach into the future
	@return list of documents
*/
func (d *databaseImpl) ListDocumentsWithDueReminders(
	_ context.Context, now time.Time, windowBefore, windowAfter time.Duration,
) ([]models.Document, error) {
	windowStart := now.Add(-windowBefore)
	windowEnd := now.Add(windowAfter)

	var entries []DocumentDBEntry
	if tmp := d.db.
		Where("reminder_at IS NOT NULL").
		Where("reminder_at >= ? AND reminder_at <= ?", windowStart, windowEnd).
		Order("reminder_at").
		Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list documents with due reminders [%w]", tmp.Error)
	}

	result := []models.Document{}
	for _, entry := range entries {
		result = append(result, entry.Document)
	}

	return result, nil
}

/*
DeleteDocument delete a document registry entry

	@param ctx context.Context - execution context
	@param docID string - document ID
*/
func (d *databaseImpl) DeleteDocument(_ context.Context, docID string) error {
	entry, err := d.getDocumentEntry(docID)
	if err != nil {
		return fmt.Errorf("failed to fetch document %s [%w]", docID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to delete document %s [%w]", docID, tmp.Error)
	}

	return nil
}
