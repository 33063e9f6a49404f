// Package extract moves inline base64 image payloads out of note markup into
// files under a per-record directory and rewrites the references.
package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/checksum"
	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/storage"
)

// RefScheme prefixes every rewritten payload reference.
const RefScheme = "file://"

var payloadRe = regexp.MustCompile(`data:image/([-\w.+]+);base64,([^"'\s]+)`)

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-occurrence reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// WithDedupe makes payloads with identical decoded bytes inside one body share
// a single file and manifest entry.
func WithDedupe(enabled bool) Option {
	return func(e *Extractor) {
		e.dedupe = enabled
	}
}

// Extractor writes payloads through a storage.Files rooted at the attachment
// directory. It holds no per-call state and is safe for concurrent use as
// long as concurrent calls use distinct record ids.
type Extractor struct {
	files  storage.Files
	logger *slog.Logger
	dedupe bool
}

// New creates an Extractor writing into files.
func New(files storage.Files, opts ...Option) *Extractor {
	e := &Extractor{files: files, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of extracting one record body.
type Result struct {
	Body        string
	Attachments []models.Attachment
	// Failed counts occurrences left untouched because of decode or write errors.
	Failed int
}

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenPayload
)

type token struct {
	kind        tokenKind
	start, end  int
	subtype     string
	data        string
	replacement string
}

// scan splits body into alternating text and payload tokens covering it fully.
func scan(body string) []token {
	matches := payloadRe.FindAllStringSubmatchIndex(body, -1)
	tokens := make([]token, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			tokens = append(tokens, token{kind: tokenText, start: last, end: m[0]})
		}
		tokens = append(tokens, token{
			kind:    tokenPayload,
			start:   m[0],
			end:     m[1],
			subtype: body[m[2]:m[3]],
			data:    body[m[4]:m[5]],
		})
		last = m[1]
	}
	if last < len(body) {
		tokens = append(tokens, token{kind: tokenText, start: last, end: len(body)})
	}
	return tokens
}

// Extract saves every decodable payload in body and returns the rewritten body
// and its manifest. Payloads that fail to decode or write stay in the body
// verbatim and do not consume a sequence number.
func (e *Extractor) Extract(body, recordID string) Result {
	res := Result{Body: body, Attachments: []models.Attachment{}}

	tokens := scan(body)
	dir := DirName(recordID)
	seen := make(map[string]string)
	rewritten := false

	for i := range tokens {
		tok := &tokens[i]
		if tok.kind != tokenPayload {
			continue
		}

		raw, err := decode(tok.data)
		if err != nil {
			res.Failed++
			e.logger.Warn("extract: skipping payload",
				slog.String("record", recordID),
				slog.String("error", (&apperr.DecodeError{Offset: tok.start, Err: err}).Error()))
			continue
		}

		var digest string
		if e.dedupe {
			digest = checksum.Sum(raw)
			if ref, ok := seen[digest]; ok {
				tok.replacement = ref
				rewritten = true
				continue
			}
		}

		seq := len(res.Attachments) + 1
		filename := fmt.Sprintf("%d.%s", seq, Extension(tok.subtype))
		rel := path.Join(dir, filename)

		if err := e.files.Write(rel, raw); err != nil {
			res.Failed++
			e.logger.Warn("extract: skipping payload",
				slog.String("record", recordID),
				slog.String("error", (&apperr.FilesystemError{Path: rel, Err: err}).Error()))
			continue
		}

		ref := RefScheme + rel
		tok.replacement = ref
		rewritten = true
		if e.dedupe {
			seen[digest] = ref
		}
		res.Attachments = append(res.Attachments, models.Attachment{
			Sequence:     seq,
			Filename:     filename,
			RelativePath: rel,
			MediaType:    MediaType(tok.subtype),
		})
		e.logger.Debug("extract: saved attachment",
			slog.String("record", recordID),
			slog.String("path", rel),
			slog.Int("bytes", len(raw)))
	}

	if rewritten {
		res.Body = render(body, tokens)
	}
	return res
}

func render(body string, tokens []token) string {
	var b strings.Builder
	b.Grow(len(body))
	for _, tok := range tokens {
		if tok.kind == tokenPayload && tok.replacement != "" {
			b.WriteString(tok.replacement)
			continue
		}
		b.WriteString(body[tok.start:tok.end])
	}
	return b.String()
}

// decode accepts padded and unpadded standard base64.
func decode(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	raw, rawErr := base64.RawStdEncoding.DecodeString(data)
	if rawErr == nil {
		return raw, nil
	}
	return nil, errors.Join(err, rawErr)
}
