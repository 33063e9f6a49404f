// Package noteservice is the read side over stored records shared by the
// CLI, the preview API and the MCP server.
package noteservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/store"
)

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 20

// ListResult is a listing of record summaries with totals.
type ListResult struct {
	Notes      []models.RecordSummary `json:"notes"`
	Total      int                    `json:"total"`
	TotalBytes int64                  `json:"total_bytes"`
	TotalFiles int                    `json:"total_attachments"`
}

// Service reads records from the store.
type Service struct {
	db store.RecordStore
}

// NewService creates a new note service.
func NewService(db store.RecordStore) *Service {
	return &Service{db: db}
}

// ListNotes returns summaries of the records in collection (all when empty).
func (s *Service) ListNotes(ctx context.Context, collection string) (*ListResult, error) {
	items, err := s.db.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	res := &ListResult{Notes: items, Total: len(items)}
	for _, it := range items {
		res.TotalBytes += it.BodySize
		res.TotalFiles += it.AttachmentCount
	}
	return res, nil
}

// GetNote returns one record. Missing ids yield apperr.ErrNotFound.
func (s *Service) GetNote(ctx context.Context, id string) (*models.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("note id: %w", apperr.ErrNotFound)
	}
	rec, err := s.db.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Search runs a full-text query over titles and bodies.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.db.Search(ctx, query, limit)
}

// Records returns full records of collection for site generation.
func (s *Service) Records(ctx context.Context, collection string) ([]models.Record, error) {
	return s.db.Records(ctx, collection)
}
