package syncer

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/extract"
	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/provider"
	"github.com/starford/notepress/internal/store"
	"github.com/starford/notepress/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeProvider serves a fixed export and records calls.
type fakeProvider struct {
	name         string
	notes        []provider.Note
	metas        []models.RecordMeta // overrides metadata derived from notes
	metaErr      error
	contentErr   error
	metaCalls    int
	contentCalls int
	closed       int
	closeErr     error
}

func (f *fakeProvider) FetchMetadata(_ context.Context, _ string) ([]models.RecordMeta, error) {
	f.metaCalls++
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	if f.metas != nil {
		return f.metas, nil
	}
	out := make([]models.RecordMeta, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, models.RecordMeta{ID: n.ID, ModifiedAt: n.Modified})
	}
	return out, nil
}

func (f *fakeProvider) FetchContent(_ context.Context, _ string) (*provider.Export, error) {
	f.contentCalls++
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	exp := &provider.Export{Name: f.name, Notes: f.notes}
	return provider.WithCleanup(exp, func() error {
		f.closed++
		return f.closeErr
	}), nil
}

// countingStore wraps a real store and counts upserts.
type countingStore struct {
	*store.DB
	upserts   int
	upsertErr error
}

func (c *countingStore) UpsertAll(ctx context.Context, records []models.Record) error {
	c.upserts++
	if c.upsertErr != nil {
		return c.upsertErr
	}
	return c.DB.UpsertAll(ctx, records)
}

type env struct {
	root string
	db   *countingStore
	prov *fakeProvider
	sync *Syncer
}

func newEnv(t *testing.T, notes ...provider.Note) *env {
	t.Helper()
	root, files := testutil.TestFiles(t)
	db := &countingStore{DB: testutil.TestDB(t)}
	prov := &fakeProvider{name: "Blog", notes: notes}
	ex := extract.New(files, extract.WithLogger(discard))
	return &env{
		root: root,
		db:   db,
		prov: prov,
		sync: New(prov, db, ex, WithLogger(discard), WithWorkers(2)),
	}
}

func note(id, modified, body string) provider.Note {
	return provider.Note{
		ID:       id,
		Name:     "Note " + id,
		Created:  "2024-01-01T10:00:00.000Z",
		Modified: modified,
		Body:     body,
	}
}

var pngB64 = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

func TestSync_NewRecordWithoutPayloads(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<div><h1>Hello</h1></div>"))

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 1, res.Updated)
	assert.False(t, res.UpToDate)
	assert.NotEmpty(t, res.RunID)

	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.ModifiedAt)
	assert.Equal(t, "Blog", got.Collection)
	assert.NotNil(t, got.Attachments)
	assert.Empty(t, got.Attachments)

	n, err := e.db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSync_UnchangedSkipsContentFetch(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	_, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	e.prov.contentCalls, e.db.upserts = 0, 0

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.Zero(t, res.Updated)
	assert.Zero(t, e.prov.contentCalls, "no content fetch when nothing is stale")
	assert.Zero(t, e.db.upserts, "no upsert when nothing is stale")
}

func TestSync_Idempotent(t *testing.T) {
	body := `<img src="data:image/png;base64,` + pngB64 + `">`
	e := newEnv(t, note("1", "T1", body), note("2", "T2", "<p>two</p>"))

	_, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	first, err := e.db.Records(context.Background(), "")
	require.NoError(t, err)

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	second, err := e.db.Records(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSync_ChangedRecordReplaced(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>old</p>"), note("2", "T1", "<p>keep</p>"))
	_, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)

	e.prov.notes = []provider.Note{note("1", "T2", "<p>new</p>"), note("2", "T1", "<p>keep</p>")}
	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 1, res.Updated)

	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "<p>new</p>", got.Body)
	assert.Equal(t, "T2", got.ModifiedAt)
}

func TestSync_OverReturnedContentFiltered(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>one</p>"))
	_, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)

	// Note 1 is unchanged but its stored body differs from the export body;
	// it must not be rewritten.
	e.prov.notes = []provider.Note{note("1", "T1", "<p>edited without bump</p>"), note("2", "T1", "<p>two</p>")}
	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>", got.Body)
	_, err = e.db.Get(context.Background(), "2")
	assert.NoError(t, err)
}

func TestSync_ExtractsAttachments(t *testing.T) {
	body := `<img src="data:image/png;base64,` + pngB64 + `"><img src="data:image/png;base64,` + pngB64 + `">`
	e := newEnv(t, note("note-1", "T1", body))

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attachments)
	assert.Zero(t, res.FailedAttachments)

	got, err := e.db.Get(context.Background(), "note-1")
	require.NoError(t, err)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "note-1/1.png", got.Attachments[0].RelativePath)
	assert.Equal(t, "note-1/2.png", got.Attachments[1].RelativePath)
	assert.NotContains(t, got.Body, "base64")
	assert.FileExists(t, filepath.Join(e.root, "note-1", "1.png"))
	assert.FileExists(t, filepath.Join(e.root, "note-1", "2.png"))
}

func TestSync_CorruptPayloadStillSyncs(t *testing.T) {
	body := `<img src="data:image/png;base64,` + pngB64 + `"><img src="data:image/png;base64,@@@@">`
	e := newEnv(t, note("1", "T1", body))

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Attachments)
	assert.Equal(t, 1, res.FailedAttachments)

	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	assert.Contains(t, got.Body, "data:image/png;base64,@@@@")
}

func TestSync_MetadataError(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.metaErr = errors.New("Notes is not running")

	res, err := e.sync.Sync(context.Background(), "Blog")
	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fetch metadata", pe.Op)
	assert.Zero(t, res.Updated)
	assert.Zero(t, e.prov.contentCalls)
}

func TestSync_ContentError(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.contentErr = errors.New("export failed")

	_, err := e.sync.Sync(context.Background(), "Blog")
	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fetch content", pe.Op)
	assert.Zero(t, e.db.upserts)
}

func TestSync_PersistenceFailureLeavesStoreUntouched(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"), note("2", "T1", "<p>y</p>"))
	e.db.upsertErr = errors.New("disk full")

	res, err := e.sync.Sync(context.Background(), "Blog")
	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, res.Updated)
	assert.Equal(t, 1, e.prov.closed, "export cleaned up on failure")

	n, err := e.db.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSync_AtomicBatchRollback(t *testing.T) {
	// An empty id violates the table constraint, failing the whole batch.
	e := newEnv(t, note("1", "T1", "<p>x</p>"), note("", "T1", "<p>bad</p>"))

	_, err := e.sync.Sync(context.Background(), "Blog")
	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)

	_, err = e.db.Get(context.Background(), "1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSync_CleanupErrorDoesNotFailSync(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.closeErr = errors.New("remove scratch: permission denied")

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, e.prov.closed)
}

func TestSync_CollectionFromExportName(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.name = "Journal"

	res, err := e.sync.Sync(context.Background(), "journal")
	require.NoError(t, err)
	assert.Equal(t, "Journal", res.Collection)

	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Journal", got.Collection)
}

func TestSync_CollectionFallsBackToRequested(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.name = ""

	_, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	got, err := e.db.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Blog", got.Collection)
}

func TestSync_StaleMissingFromExport(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	e.prov.metas = []models.RecordMeta{{ID: "1", ModifiedAt: "T1"}, {ID: "gone", ModifiedAt: "T1"}}

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stale)
	assert.Equal(t, 1, res.Updated)
}

func TestSync_CancelledContext(t *testing.T) {
	e := newEnv(t, note("1", "T1", "<p>x</p>"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.sync.Sync(ctx, "Blog")
	require.Error(t, err)
	assert.Zero(t, e.db.upserts)
}

func TestSync_ManyRecordsConcurrentExtraction(t *testing.T) {
	var notes []provider.Note
	for i := range 20 {
		id := "n" + strings.Repeat("x", i)
		notes = append(notes, note(id, "T1", `<img src="data:image/png;base64,`+pngB64+`">`))
	}
	e := newEnv(t, notes...)

	res, err := e.sync.Sync(context.Background(), "Blog")
	require.NoError(t, err)
	assert.Equal(t, 20, res.Updated)
	assert.Equal(t, 20, res.Attachments)

	for _, n := range notes {
		_, err := os.Stat(filepath.Join(e.root, n.ID, "1.png"))
		assert.NoError(t, err, n.ID)
	}
}
