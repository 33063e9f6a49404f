// Package models defines the domain types for notepress.
package models

// Record is one exported note as persisted in the local table.
//
// CreatedAt and ModifiedAt keep the provider's ISO-8601 strings verbatim;
// ModifiedAt is compared by exact string equality during sync.
type Record struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	CreatedAt   string       `json:"created_at"`
	ModifiedAt  string       `json:"modified_at"`
	Body        string       `json:"body"`
	Collection  string       `json:"collection"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment describes one binary payload extracted from a record body.
type Attachment struct {
	Sequence     int    `json:"sequence"`
	Filename     string `json:"filename"`
	RelativePath string `json:"relative_path"`
	MediaType    string `json:"media_type"`
}

// RecordMeta is the lightweight listing used for staleness checks.
type RecordMeta struct {
	ID         string `json:"id"`
	ModifiedAt string `json:"modified"`
}

// RecordSummary is a lightweight representation returned by list operations.
type RecordSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Collection      string `json:"collection"`
	CreatedAt       string `json:"created_at"`
	ModifiedAt      string `json:"modified_at"`
	BodySize        int64  `json:"body_size"`
	AttachmentCount int    `json:"attachment_count"`
}

// Collection is a named grouping of notes at the source.
type Collection struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	NoteCount int    `json:"note_count"`
}
