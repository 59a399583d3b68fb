// Package storage archives attachments in a folder-structured object store
// and lists them back for extraction.
package storage

import (
	"context"
	"errors"
	"time"

	"grn-sheet-sync-go/internal/models"
)

// MIME types used by the archive.
const (
	MimeTypePDF    = "application/pdf"
	MimeTypeFolder = "application/vnd.google-apps.folder"
)

var (
	// ErrFolderNotFound is returned by FindFolder when no folder matches.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrTargetFolderNotFound is returned when a segment of the archive
	// path does not exist. Folders are never created.
	ErrTargetFolderNotFound = errors.New("target folder not found")
)

// Service is an object store with folders.
type Service interface {
	// FindFolder returns the id of the folder called name directly under
	// parentID.
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	// ListObjects returns the objects of mimeType directly under parentID,
	// newest first. A zero createdAfter lists every object.
	ListObjects(ctx context.Context, parentID, mimeType string, createdAfter time.Time) ([]models.StoredObject, error)
	// Exists reports whether an object called name is directly under parentID.
	Exists(ctx context.Context, name, parentID string) (bool, error)
	Upload(ctx context.Context, name, parentID, mimeType string, data []byte) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
}
