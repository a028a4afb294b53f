package domain

import "time"

// Document is one corpus source: its full text plus the identifier it was
// loaded from. Documents are immutable once loaded and replaced wholesale
// on every corpus reload.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Chunk is a bounded window of a single document used as the retrieval unit.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type DocumentStatus string

const (
	StatusUploaded DocumentStatus = "uploaded"
	StatusIndexed  DocumentStatus = "indexed"
	StatusDeleted  DocumentStatus = "deleted"
	StatusFailed   DocumentStatus = "failed"
)

// DocumentRecord is the upload audit row. The corpus itself lives on disk;
// the record only tracks what was uploaded and whether indexing succeeded.
type DocumentRecord struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	MimeType  string         `json:"mime_type"`
	SizeBytes int64          `json:"size_bytes"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
