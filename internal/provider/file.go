package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/models"
)

// File serves notes from a JSON export written by the notes app export
// script: {"name": "...", "notes": [...]}. The file is read on every call.
type File struct {
	path string
}

var (
	_ Provider         = (*File)(nil)
	_ CollectionLister = (*File)(nil)
)

// NewFile creates a provider over the export file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the export file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) load(collection string) (*Export, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", f.path, err)
	}
	exp, err := decodeExport(data)
	if err != nil {
		return nil, err
	}
	if collection != "" && exp.Name != "" && exp.Name != collection {
		return nil, fmt.Errorf("collection %q: %w (export holds %q)", collection, apperr.ErrNotFound, exp.Name)
	}
	return exp, nil
}

// FetchMetadata derives metadata from the export file.
func (f *File) FetchMetadata(_ context.Context, collection string) ([]models.RecordMeta, error) {
	exp, err := f.load(collection)
	if err != nil {
		return nil, err
	}
	return metasOf(exp.Notes), nil
}

// FetchContent returns the parsed export file. Closing it is a no-op.
func (f *File) FetchContent(_ context.Context, collection string) (*Export, error) {
	return f.load(collection)
}

// ListCollections reports the single collection held by the export.
func (f *File) ListCollections(_ context.Context) ([]models.Collection, error) {
	exp, err := f.load("")
	if err != nil {
		return nil, err
	}
	return []models.Collection{{Name: exp.Name, NoteCount: len(exp.Notes)}}, nil
}
