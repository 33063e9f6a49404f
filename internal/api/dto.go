package api

import (
	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/noteservice"
	"github.com/starford/notepress/internal/store"
)

// NoteListResponse wraps note listings.
type NoteListResponse = noteservice.ListResult

// NoteDetail is the full record returned by GET /api/notes/{id}.
type NoteDetail struct {
	models.Record
	// AttachmentURLs maps each manifest entry to its preview URL.
	AttachmentURLs []string `json:"attachment_urls"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results"`
}
