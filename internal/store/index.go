package store

import (
	"context"

	"github.com/starford/notepress/internal/models"
)

// RecordStore defines the record persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type RecordStore interface {
	ModifiedAt(ctx context.Context, id string) (string, bool, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	UpsertAll(ctx context.Context, records []models.Record) error
	List(ctx context.Context, collection string) ([]models.RecordSummary, error)
	Records(ctx context.Context, collection string) ([]models.Record, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Verify *DB satisfies RecordStore at compile time.
var _ RecordStore = (*DB)(nil)
