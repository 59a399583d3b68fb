package models

import "time"

// StoredObject is an entry of a storage folder listing.
type StoredObject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchivedAttachment is a mail attachment copied into storage. Name is
// prefixed with the source message id.
type ArchivedAttachment struct {
	StorageID       string    `json:"storage_id"`
	Name            string    `json:"name"`
	SourceMessageID string    `json:"source_message_id"`
	OriginalName    string    `json:"original_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// RemainingFile is a stored PDF with no rows in the destination sheet.
type RemainingFile struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
