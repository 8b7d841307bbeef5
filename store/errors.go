package store

import "errors"

// ErrUnauthorized returned when a caller operates on a document owned by
// a different user. Handlers should translate this into an HTTP 403.
var ErrUnauthorized = errors.New("not the document owner")

// ErrExtensionNotAllowed returned when an upload carries a file type
// outside the configured allow list.
var ErrExtensionNotAllowed = errors.New("file type not allowed")

// ErrEmptyFilename returned when an upload carries no usable filename.
var ErrEmptyFilename = errors.New("empty filename")

// ErrNoDocuments returned when a summary export finds nothing to list.
var ErrNoDocuments = errors.New("no documents to summarize")
