package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"time"

	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/storage"
)

var unsafePageRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// PageName returns the file name of a record's page.
func PageName(title string) string {
	return unsafePageRe.ReplaceAllString(title, "_") + ".html"
}

// pageNames hands out page file names that are unique within one build.
// index.html is reserved for the theme index.
type pageNames map[string]struct{}

func newPageNames() pageNames {
	return pageNames{"index.html": {}}
}

// claim returns PageName(title), or the first free "<base>_<n>.html" when
// that name is taken. renamed reports whether a suffix was added.
func (n pageNames) claim(title string) (name string, renamed bool) {
	name = PageName(title)
	base := name[:len(name)-len(".html")]
	for i := 2; ; i++ {
		if _, taken := n[name]; !taken {
			break
		}
		renamed = true
		name = fmt.Sprintf("%s_%d.html", base, i)
	}
	n[name] = struct{}{}
	return name, renamed
}

// Options controls a site build.
type Options struct {
	SiteName    string
	Theme       Theme
	Output      storage.Files
	Attachments storage.Files
	Logger      *slog.Logger
}

// Report summarizes a site build.
type Report struct {
	Pages         int
	Images        int
	MissingImages int
}

// Generate writes the stylesheet, the attachments referenced by records, one
// page per record and the index page into opts.Output.
func Generate(ctx context.Context, opts Options, records []models.Record) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Theme == nil {
		return nil, fmt.Errorf("site: no theme")
	}
	rep := &Report{}

	if err := opts.Output.Write("style.css", []byte(stylesheet)); err != nil {
		return nil, fmt.Errorf("site: write stylesheet: %w", err)
	}

	for _, r := range records {
		for _, a := range r.Attachments {
			if !opts.Attachments.Exists(a.RelativePath) {
				rep.MissingImages++
				logger.Warn("site: attachment not found",
					slog.String("record", r.ID),
					slog.String("path", a.RelativePath))
				continue
			}
			data, err := opts.Attachments.Read(a.RelativePath)
			if err != nil {
				return nil, fmt.Errorf("site: copy attachment: %w", err)
			}
			if err := opts.Output.Write(path.Join(ImagesDir, a.RelativePath), data); err != nil {
				return nil, fmt.Errorf("site: copy attachment: %w", err)
			}
			rep.Images++
		}
	}
	logger.Info("site: attachments copied",
		slog.Int("images", rep.Images),
		slog.Int("missing", rep.MissingImages))

	names := newPageNames()
	entries := make([]indexEntry, 0, len(records))
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		created, _ := ParseDate(r.CreatedAt)
		page, err := Decorate(r.Body, created)
		if err != nil {
			return nil, fmt.Errorf("site: record %s: %w", r.ID, err)
		}
		name, renamed := names.claim(r.Title)
		if renamed {
			logger.Warn("site: page name taken, using suffix",
				slog.String("record", r.ID),
				slog.String("title", r.Title),
				slog.String("page", name))
		}
		if err := opts.Output.Write(name, []byte(page)); err != nil {
			return nil, fmt.Errorf("site: write page: %w", err)
		}
		rep.Pages++
		logger.Debug("site: page written", slog.String("page", name))

		e := indexEntry{created: created, Entry: Entry{Title: r.Title, Href: name}}
		if !created.IsZero() {
			e.Date = created.Format(dateLayout)
		}
		if len(r.Attachments) > 0 {
			e.Cover = path.Join(ImagesDir, r.Attachments[0].RelativePath)
		}
		entries = append(entries, e)
	}

	// Newest first; undated records last.
	slices.SortStableFunc(entries, func(a, b indexEntry) int {
		return b.created.Compare(a.created)
	})
	idx := Index{SiteName: opts.SiteName, Entries: make([]Entry, len(entries))}
	for i, e := range entries {
		idx.Entries[i] = e.Entry
	}

	var buf bytes.Buffer
	if err := opts.Theme.RenderIndex(&buf, idx); err != nil {
		return nil, fmt.Errorf("site: render index: %w", err)
	}
	if err := opts.Output.Write("index.html", buf.Bytes()); err != nil {
		return nil, fmt.Errorf("site: write index: %w", err)
	}
	logger.Info("site: generated",
		slog.String("theme", opts.Theme.Name()),
		slog.Int("pages", rep.Pages))
	return rep, nil
}

type indexEntry struct {
	Entry
	created time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses the timestamp formats notes are exported with.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
