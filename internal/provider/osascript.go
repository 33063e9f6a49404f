package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notepress/internal/models"
)

// Runner executes a JXA script with arguments, streaming its output to stdout.
type Runner func(ctx context.Context, script string, args []string, stdout io.Writer) error

// OsascriptOption configures an Osascript provider.
type OsascriptOption func(*Osascript)

// WithRunner replaces the osascript subprocess, mainly for tests.
func WithRunner(r Runner) OsascriptOption {
	return func(o *Osascript) {
		o.run = r
	}
}

// Osascript reads notes from the macOS Notes app via JavaScript for Automation.
type Osascript struct {
	scratchDir string
	run        Runner
}

var (
	_ Provider         = (*Osascript)(nil)
	_ CollectionLister = (*Osascript)(nil)
)

// NewOsascript creates a provider that stages full exports in scratchDir
// (the system temp dir when empty).
func NewOsascript(scratchDir string, opts ...OsascriptOption) *Osascript {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	o := &Osascript{scratchDir: scratchDir, run: execRunner}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Available reports whether the osascript binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("osascript")
	return err == nil
}

func execRunner(ctx context.Context, script string, args []string, stdout io.Writer) error {
	if !Available() {
		return errors.New("osascript is not installed on this system")
	}
	cmdArgs := append([]string{"-l", "JavaScript", "-e", script}, args...)
	cmd := exec.CommandContext(ctx, "osascript", cmdArgs...)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("osascript: %w: %s", err, msg)
		}
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}

// FetchMetadata lists id and modification time of every note in collection.
func (o *Osascript) FetchMetadata(ctx context.Context, collection string) ([]models.RecordMeta, error) {
	var out bytes.Buffer
	if err := o.run(ctx, metadataScript, []string{collection}, &out); err != nil {
		return nil, fmt.Errorf("fetch metadata for %q: %w", collection, err)
	}
	var metas []models.RecordMeta
	if err := json.Unmarshal(out.Bytes(), &metas); err != nil {
		return nil, fmt.Errorf("parse metadata for %q: %w", collection, err)
	}
	return metas, nil
}

// FetchContent exports the whole collection into a scratch file and parses
// it. The scratch file lives until the returned Export is closed.
func (o *Osascript) FetchContent(ctx context.Context, collection string) (*Export, error) {
	if err := os.MkdirAll(o.scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	scratch := filepath.Join(o.scratchDir, "export-"+uuid.NewString()+".json")
	f, err := os.Create(scratch)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	remove := func() error {
		if err := os.Remove(scratch); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove scratch file: %w", err)
		}
		return nil
	}

	runErr := o.run(ctx, contentScript, []string{collection}, f)
	closeErr := f.Close()
	if err := errors.Join(runErr, closeErr); err != nil {
		_ = remove()
		return nil, fmt.Errorf("export %q: %w", collection, err)
	}

	data, err := os.ReadFile(scratch)
	if err != nil {
		_ = remove()
		return nil, fmt.Errorf("read scratch file: %w", err)
	}
	exp, err := decodeExport(data)
	if err != nil {
		_ = remove()
		return nil, err
	}
	return WithCleanup(exp, remove), nil
}

// ListCollections enumerates the folders of the Notes app.
func (o *Osascript) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var out bytes.Buffer
	if err := o.run(ctx, collectionsScript, nil, &out); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var cols []models.Collection
	if err := json.Unmarshal(out.Bytes(), &cols); err != nil {
		return nil, fmt.Errorf("parse collections: %w", err)
	}
	return cols, nil
}
