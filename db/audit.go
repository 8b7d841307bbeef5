package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

/*
RecordAuditEvent append a new audit event

	@param ctx context.Context - execution context
	@param userID string - the acting user
	@param action models.AuditActionENUMType - audit action type
	@param metadata interface{} - optional metadata for the event
	@returns the audit entry
*/
func (d *databaseImpl) RecordAuditEvent(
	_ context.Context,
	userID string,
	action models.AuditActionENUMType,
	metadata interface{},
) (models.AuditEvent, error) {
	newEntry := AuditEventDBEntry{
		AuditEvent: models.AuditEvent{ID: ulid.Make().String(), UserID: userID, Action: action},
	}

	if metadata != nil {
		if err := d.validator.Struct(metadata); err != nil {
			return models.AuditEvent{}, fmt.Errorf(
				"new audit event '%s' metadata entry is not valid [%w]", action, err,
			)
		}

		metadataStr, _ := json.Marshal(&metadata)
		newEntry.Metadata = datatypes.JSON(metadataStr)
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.AuditEvent{}, fmt.Errorf(
			"new audit event '%s' entry is not valid [%w]", action, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.AuditEvent{}, fmt.Errorf(
			"new audit event '%s' insert failed [%w]", action, tmp.Error,
		)
	}

	return newEntry.AuditEvent, nil
}

/*
ListAuditEvents list captured audit events

	@param ctx context.Context - execution context
	@param filters AuditEventQueryFilter - entry listing filter
	@return list of audit events
*/
func (d *databaseImpl) ListAuditEvents(
	_ context.Context, filters AuditEventQueryFilter,
) ([]models.AuditEvent, error) {
	query := d.db.Model(&AuditEventDBEntry{})

	if len(filters.Actions) > 0 {
		query = query.Where("action in ?", filters.Actions)
	}

	if filters.TargetUserID != nil {
		query = query.Where("user_id = ?", *filters.TargetUserID)
	}

	if filters.EventsAfter != nil {
		query = query.Where("created_at >= ?", *filters.EventsAfter)
	}
	if filters.EventsBefore != nil {
		query = query.Where("created_at <= ?", *filters.EventsBefore)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at")

	var entries []AuditEventDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list captured audit events [%w]", tmp.Error)
	}

	result := []models.AuditEvent{}
	for _, entry := range entries {
		result = append(result, entry.AuditEvent)
	}

	return result, nil
}
