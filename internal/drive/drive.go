package drive

import (
	"context"
	"errors"
)

// ErrFileNotFound is returned when the storage backend does not know the
// requested file.
var ErrFileNotFound = errors.New("file not found")

// File is a file descriptor as reported by the storage backend.
type File struct {
	ID           string
	Name         string
	ModifiedTime string
	MimeType     string
}

// Folder is a subfolder descriptor.
type Folder struct {
	ID   string
	Name string
}

// Listing is the content of one folder.
type Listing struct {
	Folders []Folder
	Files   []File
}

// Provider is the storage collaborator: it lists the employee tree,
// downloads file content, and applies approved renames. Implementations
// live outside the core.
type Provider interface {
	ListFolder(ctx context.Context, driveID, parentID string) (Listing, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Rename(ctx context.Context, fileID, newName string) error
}

// Extractor is the optional text-extraction collaborator (PDF text, OCR).
// When absent the classifier degrades to filename-only decisions.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// TransientError marks a collaborator failure worth retrying (network
// errors, 5xx responses). Providers wrap such failures so the retry layer
// can tell them apart from permanent ones.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable collaborator failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
