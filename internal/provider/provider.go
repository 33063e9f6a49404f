// Package provider supplies note metadata and content from the notes
// application, either live through macOS automation or from an exported file.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/notepress/internal/models"
)

// Provider is the source of notes for a sync.
type Provider interface {
	// FetchMetadata returns id and modification time for every note
	// currently in the named collection.
	FetchMetadata(ctx context.Context, collection string) ([]models.RecordMeta, error)
	// FetchContent returns the full export of the named collection. It may
	// contain more notes than were asked for. The caller must Close it.
	FetchContent(ctx context.Context, collection string) (*Export, error)
}

// CollectionLister is implemented by providers that can enumerate collections.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]models.Collection, error)
}

// Note is one note as exported by the notes application.
type Note struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	Body     string `json:"body"`
}

// Export is a full collection export. Close releases any scratch artifact
// backing it and is safe to call more than once.
type Export struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`

	cleanup func() error
}

// Close discards transient files created while fetching the export.
func (e *Export) Close() error {
	if e == nil || e.cleanup == nil {
		return nil
	}
	fn := e.cleanup
	e.cleanup = nil
	return fn()
}

// WithCleanup attaches fn to exp so that Close runs it once.
func WithCleanup(exp *Export, fn func() error) *Export {
	exp.cleanup = fn
	return exp
}

// Record converts a note into a record of the given collection.
func (n Note) Record(collection string) models.Record {
	return models.Record{
		ID:          n.ID,
		Title:       n.Name,
		CreatedAt:   n.Created,
		ModifiedAt:  n.Modified,
		Body:        n.Body,
		Collection:  collection,
		Attachments: []models.Attachment{},
	}
}

func decodeExport(data []byte) (*Export, error) {
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return &exp, nil
}

func metasOf(notes []Note) []models.RecordMeta {
	out := make([]models.RecordMeta, 0, len(notes))
	for _, n := range notes {
		out = append(out, models.RecordMeta{ID: n.ID, ModifiedAt: n.Modified})
	}
	return out
}
