package internal

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/noteservice"
	"github.com/starford/notepress/internal/site"
	"github.com/starford/notepress/internal/syncer"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// renderNotes prints stored note summaries with a totals footer.
func renderNotes(w io.Writer, res *noteservice.ListResult) {
	if res.Total == 0 {
		fmt.Fprintln(w, "No notes stored")
		return
	}
	t := newTable("TITLE", "COLLECTION", "CREATED", "MODIFIED", "SIZE", "IMAGES")
	for _, n := range res.Notes {
		t.Row(n.Title, n.Collection, n.CreatedAt, relative(n.ModifiedAt),
			humanize.Bytes(uint64(n.BodySize)), strconv.Itoa(n.AttachmentCount))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d notes, %s, %d images",
		res.Total, humanize.Bytes(uint64(res.TotalBytes)), res.TotalFiles)))
}

// relative renders a stored timestamp as "3 days ago" when it parses.
func relative(ts string) string {
	if t, ok := site.ParseDate(ts); ok {
		return humanize.Time(t)
	}
	return ts
}

// renderCollections prints the provider's collections.
func renderCollections(w io.Writer, cols []models.Collection) {
	if len(cols) == 0 {
		fmt.Fprintln(w, "No collections found")
		return
	}
	t := newTable("NAME", "NOTES", "ID")
	for _, c := range cols {
		t.Row(c.Name, humanize.Comma(int64(c.NoteCount)), c.ID)
	}
	fmt.Fprintln(w, t.Render())
}

// renderResult prints a one-line sync summary.
func renderResult(w io.Writer, res *syncer.Result) {
	if res.UpToDate {
		fmt.Fprintf(w, "All notes in %s are up to date\n", res.Collection)
		return
	}
	fmt.Fprintf(w, "Synced %d of %d changed notes from %s (%s saved",
		res.Updated, res.Stale, res.Collection, plural(res.Attachments, "image"))
	if res.FailedAttachments > 0 {
		fmt.Fprintf(w, ", %d failed", res.FailedAttachments)
	}
	fmt.Fprintln(w, ")")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
