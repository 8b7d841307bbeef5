// Package store - document storage controllers
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/kaviselvaram-dev/docvault/blob"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/encryption"
	"github.com/kaviselvaram-dev/docvault/models"
)

// UploadParams parameters for one document upload
type UploadParams struct {
	// OwnerID the authenticated caller
	OwnerID string
	// Filename user supplied display name
	Filename string
	// Category free text label, empty defaults to models.DefaultCategory
	Category string
	// Raw the plain file bytes
	Raw []byte
	// ExpiryDate optional expiry calendar date
	ExpiryDate *time.Time
	// ReminderAt optional reminder instant in UTC
	ReminderAt *time.Time
}

// DocumentVault encrypted document store: payloads are encrypted before they
// reach durable storage, and decrypted on the way out.
//
// Every operation takes the already-authenticated caller identity explicitly;
// nothing here reaches into any ambient session.
type DocumentVault interface {
	/*
		Upload encrypt and store one document

			@param ctx context.Context - execution context
			@param params UploadParams - upload parameters
			@returns the document entry
	*/
	Upload(ctx context.Context, params UploadParams) (models.Document, error)

	/*
		Download fetch and decrypt one document

			@param ctx context.Context - execution context
			@param ownerID string - the authenticated caller
			@param docID string - document ID
			@return plain file bytes, and the original filename
	*/
	Download(ctx context.Context, ownerID string, docID string) ([]byte, string, error)

	/*
		Delete remove one document

			@param ctx context.Context - execution context
			@param ownerID string - the authenticated caller
			@param docID string - document ID
	*/
	Delete(ctx context.Context, ownerID string, docID string) error

	/*
		ListOwned list the caller's documents

			@param ctx context.Context - execution context
			@param ownerID string - the authenticated caller
			@return list of documents
	*/
	ListOwned(ctx context.Context, ownerID string) ([]models.Document, error)

	/*
		ListExpiringWithin list the caller's documents expiring within the lookahead

			@param ctx context.Context - execution context
			@param ownerID string - the authenticated caller
			@param days int - lookahead window in days
			@return list of documents
	*/
	ListExpiringWithin(ctx context.Context, ownerID string, days int) ([]models.Document, error)

	/*
		ExportSummary render a plain text listing of the caller's documents

			@param ctx context.Context - execution context
			@param ownerID string - the authenticated caller
			@return the rendered summary
	*/
	ExportSummary(ctx context.Context, ownerID string) (string, error)
}

// documentVault implements DocumentVault
type documentVault struct {
	goutils.Component

	persistence db.Client

	codec encryption.Codec

	blobs blob.Store

	allowedExt map[string]bool
}

/*
NewDocumentVault define new document vault

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence layer client
	@param codec encryption.Codec - cryptography codec
	@param blobs blob.Store - ciphertext blob store
	@param allowedExt []string - permitted upload file extensions, without dots
	@returns vault instance
*/
func NewDocumentVault(
	_ context.Context,
	persistence db.Client,
	codec encryption.Codec,
	blobs blob.Store,
	allowedExt []string,
) (DocumentVault, error) {
	logTags := log.Fields{"module": "store", "component": "document-vault"}

	extensions := map[string]bool{}
	for _, ext := range allowedExt {
		extensions[strings.ToLower(ext)] = true
	}
	if len(extensions) == 0 {
		return nil, fmt.Errorf("no permitted upload file extensions given")
	}

	return &documentVault{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: persistence,
		codec:       codec,
		blobs:       blobs,
		allowedExt:  extensions,
	}, nil
}

// recordAudit append an audit event, joining an active database session
// when one is given
func (s *documentVault) recordAudit(
	ctx context.Context,
	activeDBClient db.Database,
	userID string,
	action models.AuditActionENUMType,
	metadata interface{},
) error {
	return db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence,
		func(dbCtx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordAuditEvent(dbCtx, userID, action, metadata)
			return err
		},
	)
}

// sanitizeFilename strip path components from a user supplied filename
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(filepath.Clean(name))
}

// extensionAllowed verify the filename's extension against the allow list,
// case-insensitively
func (s *documentVault) extensionAllowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	return s.allowedExt[ext]
}

/*
Upload encrypt and store one document

	@param ctx context.Context - execution context
	@param params UploadParams - upload parameters
	@returns the document entry
*/
func (s *documentVault) Upload(ctx context.Context, params UploadParams) (models.Document, error) {
	logTags := s.GetLogTagsForContext(ctx)

	filename := sanitizeFilename(params.Filename)
	if filename == "" || filename == "." || filename == "/" {
		return models.Document{}, fmt.Errorf("upload rejected [%w]", ErrEmptyFilename)
	}
	if !s.extensionAllowed(filename) {
		return models.Document{}, fmt.Errorf(
			"upload of '%s' rejected [%w]", filename, ErrExtensionNotAllowed,
		)
	}

	// Encrypt the payload
	nonce, cipherText, err := s.codec.Encrypt(ctx, params.Raw, nil)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to encrypt document payload [%w]", err)
	}

	// The blob write must be confirmed before the registry row is committed,
	// so a registry row never references a missing blob
	storedName := fmt.Sprintf("%s.bin", uuid.NewString())
	if err := s.blobs.Put(ctx, storedName, cipherText); err != nil {
		return models.Document{}, fmt.Errorf("failed to persist document ciphertext [%w]", err)
	}

	var docEntry models.Document
	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			docEntry, err = dbClient.DefineNewDocument(dbCtx, db.NewDocumentParams{
				OwnerID:    params.OwnerID,
				Filename:   filename,
				StoredName: storedName,
				Category:   params.Category,
				ExpiryDate: params.ExpiryDate,
				ReminderAt: params.ReminderAt,
				EncNonce:   nonce,
			})
			if err != nil {
				return fmt.Errorf("failed to register document [%w]", err)
			}

			return s.recordAudit(
				dbCtx, dbClient, params.OwnerID, models.AuditActionUpload,
				models.AuditEventDocumentRelated{DocumentID: docEntry.ID, Filename: filename},
			)
		},
	); dbErr != nil {
		// The registry never saw this document; remove the orphaned ciphertext
		if cleanupErr := s.blobs.Delete(ctx, storedName); cleanupErr != nil {
			log.WithError(cleanupErr).WithFields(logTags).
				WithField("stored_name", storedName).
				Error("Orphaned ciphertext cleanup failed")
		}
		return models.Document{}, fmt.Errorf("failed to upload '%s' [%w]", filename, dbErr)
	}

	return docEntry, nil
}

// fetchOwnedDocument fetch a document and verify the caller owns it
func (s *documentVault) fetchOwnedDocument(
	ctx context.Context, ownerID string, docID string,
) (models.Document, error) {
	var docEntry models.Document
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			docEntry, err = dbClient.GetDocument(dbCtx, docID)
			return err
		},
	); dbErr != nil {
		return models.Document{}, dbErr
	}

	if docEntry.OwnerID != ownerID {
		return models.Document{}, fmt.Errorf(
			"document %s access denied [%w]", docID, ErrUnauthorized,
		)
	}

	return docEntry, nil
}

/*
Download fetch and decrypt one document

	@param ctx context.Context - execution context
	@param ownerID string - the authenticated caller
	@param docID string - document ID
	@return plain file bytes, and the original filename
*/
func (s *documentVault) Download(
	ctx context.Context, ownerID string, docID string,
) ([]byte, string, error) {
	docEntry, err := s.fetchOwnedDocument(ctx, ownerID, docID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download document %s [%w]", docID, err)
	}

	cipherText, err := s.blobs.Get(ctx, docEntry.StoredName)
	if err != nil {
		return nil, "", fmt.Errorf(
			"failed to fetch ciphertext of document %s [%w]", docID, err,
		)
	}

	plainText, err := s.codec.Decrypt(ctx, docEntry.EncNonce, cipherText, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt document %s [%w]", docID, err)
	}

	if dbErr := s.recordAudit(
		ctx, nil, ownerID, models.AuditActionDownload,
		models.AuditEventDocumentRelated{DocumentID: docEntry.ID, Filename: docEntry.Filename},
	); dbErr != nil {
		return nil, "", fmt.Errorf("failed to log download of document %s [%w]", docID, dbErr)
	}

	return plainText, docEntry.Filename, nil
}

/*
Delete remove one document

	@param ctx context.Context - execution context
	@param ownerID string - the authenticated caller
	@param docID string - document ID
*/
func (s *documentVault) Delete(ctx context.Context, ownerID string, docID string) error {
	logTags := s.GetLogTagsForContext(ctx)

	docEntry, err := s.fetchOwnedDocument(ctx, ownerID, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document %s [%w]", docID, err)
	}

	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			if err := dbClient.DeleteDocument(dbCtx, docEntry.ID); err != nil {
				return err
			}

			return s.recordAudit(
				dbCtx, dbClient, ownerID, models.AuditActionDelete,
				models.AuditEventDocumentRelated{DocumentID: docEntry.ID, Filename: docEntry.Filename},
			)
		},
	); dbErr != nil {
		return fmt.Errorf("failed to delete document %s [%w]", docID, dbErr)
	}

	// Ciphertext cleanup is best-effort; a leftover blob is inert ciphertext
	if err := s.blobs.Delete(ctx, docEntry.StoredName); err != nil {
		log.WithError(err).WithFields(logTags).
			WithField("stored_name", docEntry.StoredName).
			Error("Ciphertext cleanup failed")
	}

	return nil
}

/*
ListOwned list the caller's documents

	@param ctx context.Context - execution context
	@param ownerID string - the authenticated caller
	@return list of documents
*/
func (s *documentVault) ListOwned(ctx context.Context, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			docs, err = dbClient.ListDocumentsByOwner(dbCtx, ownerID, db.DocumentQueryFilter{})
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to list documents of user %s [%w]", ownerID, dbErr)
	}

	return docs, nil
}

/*
ListExpiringWithin list the caller's documents expiring within the lookahead

	@param ctx context.Context - execution context
	@param ownerID string - the authenticated caller
	@param days int - lookahead window in days
	@return list of documents
*/
func (s *documentVault) ListExpiringWithin(
	ctx context.Context, ownerID string, days int,
) ([]models.Document, error) {
	var docs []models.Document
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			docs, err = dbClient.ListDocumentsExpiringWithin(dbCtx, ownerID, days)
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf(
			"failed to list expiring documents of user %s [%w]", ownerID, dbErr,
		)
	}

	return docs, nil
}

/*
ExportSummary render a plain text listing of the caller's documents

	@param ctx context.Context - execution context
	@param ownerID string - the authenticated caller
	@return the rendered summary
*/
func (s *documentVault) ExportSummary(ctx context.Context, ownerID string) (string, error) {
	var owner models.User
	var docs []models.Document
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			if owner, err = dbClient.GetUser(dbCtx, ownerID); err != nil {
				return err
			}
			docs, err = dbClient.ListDocumentsByOwner(dbCtx, ownerID, db.DocumentQueryFilter{})
			return err
		},
	); dbErr != nil {
		return "", fmt.Errorf("failed to summarize documents of user %s [%w]", ownerID, dbErr)
	}

	if len(docs) == 0 {
		return "", fmt.Errorf(
			"user %s has no documents to summarize [%w]", ownerID, ErrNoDocuments,
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Document vault summary for %s\n", owner.Email)
	fmt.Fprintf(
		&sb, "Generated on: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
	)
	for _, doc := range docs {
		expiry := "N/A"
		if doc.ExpiryDate != nil {
			expiry = doc.ExpiryDate.Format("2006-01-02")
		}
		reminder := "N/A"
		if doc.ReminderAt != nil {
			reminder = doc.ReminderAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&sb, "%s\n", doc.Filename)
		fmt.Fprintf(&sb, "  * Category: %s\n", doc.Category)
		fmt.Fprintf(&sb, "  * Expiry: %s\n", expiry)
		fmt.Fprintf(&sb, "  * Reminder: %s\n\n", reminder)
	}

	if dbErr := s.recordAudit(
		ctx, nil, ownerID, models.AuditActionSummaryExport, nil,
	); dbErr != nil {
		return "", fmt.Errorf("failed to log summary export of user %s [%w]", ownerID, dbErr)
	}

	return sb.String(), nil
}
