package domain

import "time"

// DefectAttachment records metadata for a stored file. The bytes themselves
// live behind a storage.Store; the core only tracks the reference.
type DefectAttachment struct {
	ID           string
	DefectID     string
	UploadedByID string
	FileName     string
	ContentType  string
	SizeBytes    int64
	StorageKey   string
	UploadedAt   time.Time
}
