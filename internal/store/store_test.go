package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notepress-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id, modified string) models.Record {
	return models.Record{
		ID:          id,
		Title:       "Note " + id,
		CreatedAt:   "2024-01-01T10:00:00.000Z",
		ModifiedAt:  modified,
		Body:        "<div>body of " + id + "</div>",
		Collection:  "Blog",
		Attachments: []models.Attachment{},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM records`).Scan(&count))
	assert.Zero(t, count)
}

func TestOpen_Reopen(t *testing.T) {
	f, err := os.CreateTemp("", "notepress-reopen-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	require.NoError(t, db.UpsertAll(context.Background(), []models.Record{record("1", "T1")}))
	require.NoError(t, db.Close())

	db, err = Open(f.Name())
	require.NoError(t, err, "migrations must be idempotent")
	defer db.Close()
	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertAllAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	r := record("1", "T1")
	r.Attachments = []models.Attachment{{Sequence: 1, Filename: "1.png", RelativePath: "1/1.png", MediaType: "image/png"}}
	require.NoError(t, db.UpsertAll(ctx, []models.Record{r}))

	got, err := db.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, r, *got)
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestModifiedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, found, err := db.ModifiedAt(ctx, "1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.UpsertAll(ctx, []models.Record{record("1", "T1")}))
	modified, found, err := db.ModifiedAt(ctx, "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "T1", modified)
}

func TestUpsertAll_FullReplace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	old := record("1", "T1")
	old.Attachments = []models.Attachment{{Sequence: 1, Filename: "1.gif", RelativePath: "1/1.gif", MediaType: "image/gif"}}
	require.NoError(t, db.UpsertAll(ctx, []models.Record{old}))

	updated := record("1", "T2")
	updated.Title = "Renamed"
	updated.Collection = "Photos"
	require.NoError(t, db.UpsertAll(ctx, []models.Record{updated}))

	got, err := db.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "Photos", got.Collection)
	assert.Equal(t, "T2", got.ModifiedAt)
	assert.Empty(t, got.Attachments)

	n, _ := db.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestUpsertAll_NilAttachmentsStoredEmpty(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := record("1", "T1")
	r.Attachments = nil
	require.NoError(t, db.UpsertAll(ctx, []models.Record{r}))

	got, err := db.Get(ctx, "1")
	require.NoError(t, err)
	assert.NotNil(t, got.Attachments)
	assert.Empty(t, got.Attachments)
}

func TestUpsertAll_AtomicOnFailure(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	batch := []models.Record{record("a", "T1"), record("b", "T1"), record("", "T1")}
	err := db.UpsertAll(ctx, batch)
	require.Error(t, err)

	var pe *apperr.PersistenceError
	assert.True(t, errors.As(err, &pe))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no record of a failed batch may be visible")
}

func TestUpsertAll_FailedBatchKeepsPriorState(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertAll(ctx, []models.Record{record("a", "T1")}))

	err := db.UpsertAll(ctx, []models.Record{record("a", "T2"), record("", "T2")})
	require.Error(t, err)

	modified, _, _ := db.ModifiedAt(ctx, "a")
	assert.Equal(t, "T1", modified)
}

func TestUpsertAll_Empty(t *testing.T) {
	db := testDB(t)
	assert.NoError(t, db.UpsertAll(context.Background(), nil))
}

func TestList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	older := record("1", "2024-01-01T00:00:00Z")
	newer := record("2", "2024-02-01T00:00:00Z")
	newer.Attachments = []models.Attachment{
		{Sequence: 1, Filename: "1.png", RelativePath: "2/1.png", MediaType: "image/png"},
		{Sequence: 2, Filename: "2.png", RelativePath: "2/2.png", MediaType: "image/png"},
	}
	other := record("3", "2024-03-01T00:00:00Z")
	other.Collection = "Photos"
	require.NoError(t, db.UpsertAll(ctx, []models.Record{older, newer, other}))

	all, err := db.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	blog, err := db.List(ctx, "Blog")
	require.NoError(t, err)
	require.Len(t, blog, 2)
	assert.Equal(t, "2", blog[0].ID)
	assert.Equal(t, 2, blog[0].AttachmentCount)
	assert.Equal(t, int64(len(newer.Body)), blog[0].BodySize)
	assert.Equal(t, 0, blog[1].AttachmentCount)
}

func TestRecords(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertAll(ctx, []models.Record{record("1", "T1"), record("2", "T2")}))

	recs, err := db.Records(ctx, "Blog")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID)

	none, err := db.Records(ctx, "Nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := record("s", "T1")
	r.Title = "Search Me"
	r.Body = "<p>uniqueword appears here</p>"
	require.NoError(t, db.UpsertAll(ctx, []models.Record{r, record("other", "T1")}))

	results, err := db.Search(ctx, "uniqueword", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s", results[0].ID)
	assert.Equal(t, "Search Me", results[0].Title)
}
