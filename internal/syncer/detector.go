package syncer

import (
	"context"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/models"
)

// ModifiedLookup returns the stored modification time of a record.
type ModifiedLookup interface {
	ModifiedAt(ctx context.Context, id string) (string, bool, error)
}

// ComputeStale returns the ids in remote that have no stored row or whose
// stored modification time differs from the remote one.
func ComputeStale(ctx context.Context, remote []models.RecordMeta, lookup ModifiedLookup) (map[string]struct{}, error) {
	stale := make(map[string]struct{})
	for _, m := range remote {
		stored, found, err := lookup.ModifiedAt(ctx, m.ID)
		if err != nil {
			return nil, &apperr.PersistenceError{Op: "lookup " + m.ID, Err: err}
		}
		if !found || stored != m.ModifiedAt {
			stale[m.ID] = struct{}{}
		}
	}
	return stale, nil
}
