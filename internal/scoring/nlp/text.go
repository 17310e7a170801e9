// Package nlp holds the small text normalization helpers used for keyword matching.
package nlp

import (
	"regexp"
	"strings"
)

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Normalize lower-cases s and replaces every run of non-alphanumerics with a single space.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the unique tokens of a normalized string.
func Tokens(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	if normalized == "" {
		return out
	}
	for _, t := range strings.Split(normalized, " ") {
		if t == "" {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

// TokenList splits a normalized string, keeping order and duplicates.
func TokenList(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// ContainsPhrase reports whether a normalized phrase occurs as whole words.
// "rest api" matches "... rest api ..." but not "... rest apis ...".
func ContainsPhrase(normalizedText, normalizedPhrase string) bool {
	if normalizedPhrase == "" {
		return false
	}
	return strings.Contains(" "+normalizedText+" ", " "+normalizedPhrase+" ")
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "our": {}, "are": {}, "will": {},
	"who": {}, "have": {}, "has": {}, "this": {}, "that": {}, "from": {}, "your": {}, "they": {},
	"their": {}, "about": {}, "into": {}, "able": {}, "must": {}, "should": {}, "can": {},
	"all": {}, "any": {}, "not": {}, "but": {}, "was": {}, "were": {}, "job": {}, "role": {},
	"work": {}, "working": {}, "team": {}, "teams": {}, "years": {}, "year": {}, "experience": {},
	"strong": {}, "good": {}, "great": {}, "knowledge": {}, "skills": {}, "including": {},
	"plus": {}, "nice": {}, "ideal": {}, "candidate": {}, "looking": {}, "join": {}, "help": {},
	"using": {}, "use": {}, "across": {}, "within": {}, "well": {}, "more": {}, "other": {},
	"such": {}, "also": {}, "etc": {}, "new": {}, "what": {}, "how": {}, "when": {}, "where": {},
}

// IsKeyword reports whether a token is worth matching on: at least three
// characters, not purely numeric, not a stop word.
func IsKeyword(token string) bool {
	if len(token) < 3 {
		return false
	}
	if _, stop := stopWords[token]; stop {
		return false
	}
	return strings.Trim(token, "0123456789") != ""
}
