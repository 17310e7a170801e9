// Package extract turns stored resume documents into plain text.
package extract

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedFormat means no strategy handles the document type. It is
	// a permanent failure: retrying the same bytes cannot succeed.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoText means the document parsed but yielded no text.
	ErrNoText = errors.New("document contains no extractable text")
)

// Document is a raw upload handed to an extractor.
type Document struct {
	Data     []byte
	MimeType string
	FileName string
}

// TextExtractable is the capability the pipeline depends on.
type TextExtractable interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// Strategy extracts text from one document format.
type Strategy interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, data []byte) (string, error)

func (f StrategyFunc) ExtractText(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLines  = regexp.MustCompile(`\n{2,}`)
)

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = inlineSpace.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " \n", "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
