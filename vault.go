// Package docvault - encrypted-at-rest personal document storage
package docvault

import (
	"context"
	"fmt"

	"github.com/kaviselvaram-dev/docvault/blob"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/encryption"
	"github.com/kaviselvaram-dev/docvault/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// VaultParams document vault init parameters
type VaultParams struct {
	// DBDialector GORM dialector
	DBDialector gorm.Dialector
	// DBLogLevel SQL log level
	DBLogLevel logger.LogLevel
	// EncryptionKey the 256-bit process encryption key
	EncryptionKey []byte
	// BlobDir directory holding ciphertext blobs
	BlobDir string
	// AllowedExtensions permitted upload file extensions, without dots
	AllowedExtensions []string
}

/*
NewDocumentVault initialize a document vault instance.

Each instance is backed by a SQL registry and a blob directory; two instances
using the same pair operate on the same vault.

	@param ctx context.Context - execution context
	@param params VaultParams - vault parameters
	@returns the persistence client and the vault instance
*/
func NewDocumentVault(
	ctx context.Context, params VaultParams,
) (db.Client, store.DocumentVault, error) {
	// Prepare persistence
	persistence, err := db.NewConnection(params.DBDialector, params.DBLogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}

	// Prepare cryptography codec
	codec, err := encryption.NewAESGCMCodec(params.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialized cryptography codec [%w]", err)
	}

	// Prepare ciphertext blob store
	blobs, err := blob.NewFilesystemStore(params.BlobDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialized blob store [%w]", err)
	}

	vault, err := store.NewDocumentVault(ctx, persistence, codec, blobs, params.AllowedExtensions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialized document vault [%w]", err)
	}

	return persistence, vault, nil
}
