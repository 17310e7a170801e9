package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"resume-screening/internal/shared/storage/object"
)

const (
	MimePlainText = "text/plain"
	MimePDF       = "application/pdf"
	MimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Registry picks a Strategy by MIME type. The type is sniffed from the bytes
// first; the file extension and the uploader's hint are fallbacks.
type Registry struct {
	byMime map[string]Strategy
	byExt  map[string]string
}

// NewRegistry returns a registry with the plain text, PDF and DOCX strategies.
func NewRegistry() *Registry {
	r := &Registry{byMime: map[string]Strategy{}, byExt: map[string]string{}}
	r.Register(MimePlainText, PlainText{}, ".txt", ".text", ".md")
	r.Register(MimePDF, PDF{}, ".pdf")
	r.Register(MimeDOCX, DOCX{}, ".docx")
	return r
}

// Register binds a strategy to a MIME type and optional file extensions.
func (r *Registry) Register(mime string, s Strategy, exts ...string) {
	mime = baseMime(mime)
	r.byMime[mime] = s
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = mime
	}
}

// Resolve returns the MIME type and strategy for doc, or ErrUnsupportedFormat.
func (r *Registry) Resolve(doc Document) (string, Strategy, error) {
	detected := mimetype.Detect(doc.Data)
	for m := detected; m != nil; m = m.Parent() {
		if s, ok := r.byMime[baseMime(m.String())]; ok {
			return baseMime(m.String()), s, nil
		}
	}
	// Only container or unknown types fall back to name and hint.
	if !detected.Is("application/octet-stream") && !detected.Is("application/zip") {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, describe(doc))
	}
	if mime, ok := r.byExt[object.Ext(doc.FileName)]; ok {
		return mime, r.byMime[mime], nil
	}
	if hint := baseMime(doc.MimeType); hint != "" {
		if s, ok := r.byMime[hint]; ok {
			return hint, s, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, describe(doc))
}

// Extract resolves a strategy and runs it. Empty output is an error.
func (r *Registry) Extract(ctx context.Context, doc Document) (string, error) {
	mime, s, err := r.Resolve(doc)
	if err != nil {
		return "", err
	}
	text, err := s.ExtractText(ctx, doc.Data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", mime, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extract %s: %w", mime, ErrNoText)
	}
	return text, nil
}

func baseMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

func describe(doc Document) string {
	detected := baseMime(mimetype.Detect(doc.Data).String())
	if doc.FileName == "" {
		return detected
	}
	return detected + " (" + doc.FileName + ")"
}

var _ TextExtractable = (*Registry)(nil)
