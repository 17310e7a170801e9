// Package scoring parses resume text and scores it against a job posting.
package scoring

import (
	"context"
	"errors"
)

var (
	// ErrEmptyText means there was nothing to parse.
	ErrEmptyText = errors.New("resume text is empty")
	// ErrNoContent means the text has no recognizable words.
	ErrNoContent = errors.New("resume text has no parseable content")
)

// Job is the posting a resume is scored against.
type Job struct {
	Title       string
	Description string
}

// Result is the parsed resume plus its match score in [0, 1].
type Result struct {
	Score           float64
	Email           string
	Phone           string
	Skills          []string
	Sections        []string
	ExperienceYears float64
	MatchedKeywords []string
	MissingKeywords []string
	WordCount       int
}

// Scorable is the capability the pipeline depends on.
type Scorable interface {
	Score(ctx context.Context, text string, job Job) (Result, error)
}
