// Package blob - ciphertext blob storage controllers
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound returned when the named blob does not exist
var ErrNotFound = errors.New("blob not found")

/*
Store maps an opaque stored identifier to ciphertext bytes on durable storage.

Identifiers are caller generated; the store never invents them. A write
either fully completes or the identifier is considered absent.
*/
type Store interface {
	/*
		Put persist ciphertext bytes under an identifier

			@param ctx context.Context - execution context
			@param name string - the opaque stored identifier
			@param data []byte - ciphertext bytes
	*/
	Put(ctx context.Context, name string, data []byte) error

	/*
		Get fetch ciphertext bytes by identifier

			@param ctx context.Context - execution context
			@param name string - the opaque stored identifier
			@return ciphertext bytes
	*/
	Get(ctx context.Context, name string) ([]byte, error)

	/*
		Delete remove a blob. Deleting an absent identifier is not an error.

			@param ctx context.Context - execution context
			@param name string - the opaque stored identifier
	*/
	Delete(ctx context.Context, name string) error
}

// fsStore implements Store against a local directory
type fsStore struct {
	goutils.Component
	rootDir string
}

/*
NewFilesystemStore define a blob store backed by a local directory

	@param rootDir string - directory holding the blobs
	@returns store instance
*/
func NewFilesystemStore(rootDir string) (Store, error) {
	if err := os.MkdirAll(rootDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to prepare blob directory '%s' [%w]", rootDir, err)
	}

	logTags := log.Fields{"module": "blob", "component": "fs-store"}

	return &fsStore{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		rootDir: rootDir,
	}, nil
}

// blobPath resolve the on-disk path of a blob, rejecting identifiers
// which escape the root directory
func (s *fsStore) blobPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid blob identifier '%s'", name)
	}
	return filepath.Join(s.rootDir, name), nil
}

/*
Put persist ciphertext bytes under an identifier

	@param ctx context.Context - execution context
	@param name string - the opaque stored identifier
	@param data []byte - ciphertext bytes
*/
func (s *fsStore) Put(_ context.Context, name string, data []byte) error {
	target, err := s.blobPath(name)
	if err != nil {
		return err
	}

	// Stage into a temp file, then rename, so the identifier only appears
	// once the bytes are fully on disk
	staging := filepath.Join(s.rootDir, fmt.Sprintf(".staging-%s", ulid.Make().String()))
	if err := os.WriteFile(staging, data, 0o600); err != nil {
		return fmt.Errorf("failed to stage blob '%s' [%w]", name, err)
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("failed to commit blob '%s' [%w]", name, err)
	}

	return nil
}

/*
Get fetch ciphertext bytes by identifier

	@param ctx context.Context - execution context
	@param name string - the opaque stored identifier
	@return ciphertext bytes
*/
func (s *fsStore) Get(_ context.Context, name string) ([]byte, error) {
	target, err := s.blobPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob '%s' missing [%w]", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob '%s' [%w]", name, err)
	}

	return data, nil
}

/*
Delete remove a blob. Deleting an absent identifier is not an error.

	@param ctx context.Context - execution context
	@param name string - the opaque stored identifier
*/
func (s *fsStore) Delete(_ context.Context, name string) error {
	target, err := s.blobPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob '%s' [%w]", name, err)
	}

	return nil
}
