// Package syncer brings the local record store up to date with a notes
// provider: it detects stale notes, extracts their inline attachments and
// commits them in one transaction.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/extract"
	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/provider"
)

// DefaultWorkers bounds concurrent extraction when no limit is configured.
const DefaultWorkers = 4

// Store is the persistence the syncer needs.
type Store interface {
	ModifiedLookup
	UpsertAll(ctx context.Context, records []models.Record) error
}

// Result summarizes one sync run.
type Result struct {
	RunID      string `json:"run_id"`
	Collection string `json:"collection"`
	// Stale is the number of notes detected as new or changed.
	Stale int `json:"stale"`
	// Updated is the number of records committed; zero on failure.
	Updated           int  `json:"updated"`
	Attachments       int  `json:"attachments"`
	FailedAttachments int  `json:"failed_attachments"`
	UpToDate          bool `json:"up_to_date"`
}

type state string

const (
	stateFetchingMetadata      state = "fetching_metadata"
	stateNoChanges             state = "no_changes"
	stateFetchingContent       state = "fetching_content"
	stateExtractingAttachments state = "extracting_attachments"
	statePersisting            state = "persisting"
	stateDone                  state = "done"
	stateFailed                state = "failed"
)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithWorkers bounds the number of records extracted concurrently.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Syncer runs incremental syncs of one provider into one store.
type Syncer struct {
	provider  provider.Provider
	store     Store
	extractor *extract.Extractor
	logger    *slog.Logger
	workers   int
}

// New creates a Syncer.
func New(p provider.Provider, st Store, ex *extract.Extractor, opts ...Option) *Syncer {
	s := &Syncer{
		provider:  p,
		store:     st,
		extractor: ex,
		logger:    slog.Default(),
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches the collection's metadata, re-exports the notes whose
// modification time changed, extracts their attachments and replaces their
// stored rows in a single transaction. Provider and store failures abort the
// run; attachment failures are counted and logged.
func (s *Syncer) Sync(ctx context.Context, collection string) (res *Result, err error) {
	res = &Result{RunID: uuid.NewString(), Collection: collection}
	log := s.logger.With(slog.String("run", res.RunID), slog.String("collection", collection))

	defer func() {
		if err != nil {
			res.Updated = 0
			s.enter(log, stateFailed)
		}
	}()

	s.enter(log, stateFetchingMetadata)
	metas, err := s.provider.FetchMetadata(ctx, collection)
	if err != nil {
		return res, &apperr.ProviderError{Op: "fetch metadata", Err: err}
	}

	stale, err := ComputeStale(ctx, metas, s.store)
	if err != nil {
		return res, err
	}
	res.Stale = len(stale)
	if len(stale) == 0 {
		s.enter(log, stateNoChanges)
		log.Info("sync: all notes are up to date", slog.Int("notes", len(metas)))
		res.UpToDate = true
		return res, nil
	}
	log.Info("sync: stale notes detected",
		slog.Int("stale", len(stale)),
		slog.Int("notes", len(metas)))

	s.enter(log, stateFetchingContent)
	exp, err := s.provider.FetchContent(ctx, collection)
	if err != nil {
		return res, &apperr.ProviderError{Op: "fetch content", Err: err}
	}
	defer func() {
		if cerr := exp.Close(); cerr != nil {
			log.Warn("sync: cleanup failed", slog.String("error", cerr.Error()))
		}
	}()

	if exp.Name != "" {
		res.Collection = exp.Name
	}
	records := selectStale(exp.Notes, stale, res.Collection)
	if missing := len(stale) - len(records); missing > 0 {
		log.Warn("sync: stale notes missing from export", slog.Int("missing", missing))
	}

	s.enter(log, stateExtractingAttachments)
	failed, err := s.extractAll(ctx, records)
	if err != nil {
		return res, fmt.Errorf("sync: extract: %w", err)
	}
	for _, r := range records {
		res.Attachments += len(r.Attachments)
	}
	res.FailedAttachments = failed
	log.Info("sync: attachments extracted",
		slog.Int("saved", res.Attachments),
		slog.Int("failed", res.FailedAttachments))

	s.enter(log, statePersisting)
	if err := s.store.UpsertAll(ctx, records); err != nil {
		var pe *apperr.PersistenceError
		if errors.As(err, &pe) {
			return res, err
		}
		return res, &apperr.PersistenceError{Op: "upsert", Err: err}
	}
	res.Updated = len(records)

	s.enter(log, stateDone)
	log.Info("sync: records synced", slog.Int("updated", res.Updated))
	return res, nil
}

// selectStale keeps the exported notes whose id is in stale, first occurrence
// wins, preserving export order.
func selectStale(notes []provider.Note, stale map[string]struct{}, collection string) []models.Record {
	out := make([]models.Record, 0, len(stale))
	taken := make(map[string]struct{}, len(stale))
	for _, n := range notes {
		if _, ok := stale[n.ID]; !ok {
			continue
		}
		if _, dup := taken[n.ID]; dup {
			continue
		}
		taken[n.ID] = struct{}{}
		out = append(out, n.Record(collection))
	}
	return out
}

// extractAll rewrites the bodies of records in place. Each record writes only
// into its own attachment directory, so records run concurrently.
func (s *Syncer) extractAll(ctx context.Context, records []models.Record) (int, error) {
	failed := make([]int, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := s.extractor.Extract(records[i].Body, records[i].ID)
			records[i].Body = r.Body
			records[i].Attachments = r.Attachments
			failed[i] = r.Failed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range failed {
		total += n
	}
	return total, nil
}

func (s *Syncer) enter(log *slog.Logger, st state) {
	log.Debug("sync: state", slog.String("state", string(st)))
}
