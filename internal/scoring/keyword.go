package scoring

import (
	"context"
	"math"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"resume-screening/internal/scoring/nlp"
)

const (
	skillWeight   = 0.7
	keywordWeight = 0.3
	maxKeywords   = 30
	maxMissing    = 20
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	yearsPattern = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d)?)\s*\+?\s*(?:years?|yrs?)`)
	rangePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s*(?:-|–|—|to)\s*((?:19|20)\d{2}|present|current|now)\b`)
)

var sectionHeadings = map[string]string{
	"summary":          "summary",
	"profile":          "summary",
	"objective":        "summary",
	"experience":       "experience",
	"work experience":  "experience",
	"employment":       "experience",
	"work history":     "experience",
	"education":        "education",
	"skills":           "skills",
	"technical skills": "skills",
	"projects":         "projects",
	"certifications":   "certifications",
	"languages":        "languages",
	"awards":           "awards",
	"publications":     "publications",
}

// KeywordScorer scores by skill and keyword overlap with the job posting.
// Skills found in the posting weigh more than its other keywords.
type KeywordScorer struct {
	Skills map[string][]string
	Now    func() time.Time
}

// NewKeywordScorer returns a scorer using the default skill dictionary.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{Skills: nlp.DefaultSkills, Now: time.Now}
}

func (s *KeywordScorer) Score(ctx context.Context, text string, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	normText := nlp.Normalize(text)
	words := nlp.TokenList(normText)
	if len(words) == 0 {
		return Result{}, ErrNoContent
	}

	res := Result{
		Email:           findEmail(text),
		Phone:           findPhone(text),
		Sections:        findSections(text),
		ExperienceYears: s.experienceYears(text),
		WordCount:       len(words),
	}
	res.Skills = s.matchSkills(normText)

	normJob := nlp.Normalize(job.Title + " " + job.Description)
	required := s.matchSkills(normJob)
	keywords := jobKeywords(normJob, s.skillTokens())

	have := make(map[string]struct{}, len(res.Skills))
	for _, sk := range res.Skills {
		have[sk] = struct{}{}
	}
	var matchedSkills, missingSkills []string
	for _, sk := range required {
		if _, ok := have[sk]; ok {
			matchedSkills = append(matchedSkills, sk)
		} else {
			missingSkills = append(missingSkills, sk)
		}
	}

	resumeTokens := nlp.Tokens(normText)
	var matchedKw, missingKw []string
	for _, kw := range keywords {
		if _, ok := resumeTokens[kw]; ok {
			matchedKw = append(matchedKw, kw)
		} else {
			missingKw = append(missingKw, kw)
		}
	}

	res.Score = combine(ratio(len(matchedSkills), len(required)), len(required) > 0,
		ratio(len(matchedKw), len(keywords)), len(keywords) > 0)
	res.MatchedKeywords = append(append([]string{}, matchedSkills...), matchedKw...)
	res.MissingKeywords = append(append([]string{}, missingSkills...), missingKw...)
	if len(res.MissingKeywords) > maxMissing {
		res.MissingKeywords = res.MissingKeywords[:maxMissing]
	}
	if res.Skills == nil {
		res.Skills = []string{}
	}
	return res, nil
}

func (s *KeywordScorer) matchSkills(normalized string) []string {
	var out []string
	for skill, aliases := range s.Skills {
		for _, v := range nlp.SkillVariants(skill, aliases) {
			if nlp.ContainsPhrase(normalized, v) {
				out = append(out, nlp.Normalize(skill))
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *KeywordScorer) skillTokens() map[string]struct{} {
	out := map[string]struct{}{}
	for skill, aliases := range s.Skills {
		for _, v := range nlp.SkillVariants(skill, aliases) {
			for t := range nlp.Tokens(v) {
				out[t] = struct{}{}
			}
		}
	}
	return out
}

// jobKeywords returns the posting's most frequent non-skill keywords.
func jobKeywords(normJob string, skillTokens map[string]struct{}) []string {
	counts := map[string]int{}
	first := map[string]int{}
	for i, t := range nlp.TokenList(normJob) {
		if !nlp.IsKeyword(t) {
			continue
		}
		if _, isSkill := skillTokens[t]; isSkill {
			continue
		}
		if _, seen := first[t]; !seen {
			first[t] = i
		}
		counts[t]++
	}
	out := make([]string, 0, len(counts))
	for t := range counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return first[out[i]] < first[out[j]]
	})
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func combine(skill float64, hasSkills bool, kw float64, hasKeywords bool) float64 {
	var score float64
	switch {
	case hasSkills && hasKeywords:
		score = skillWeight*skill + keywordWeight*kw
	case hasSkills:
		score = skill
	case hasKeywords:
		score = kw
	}
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*10000) / 10000
}

func findEmail(text string) string {
	for _, candidate := range emailPattern.FindAllString(text, -1) {
		if addr, err := mail.ParseAddress(candidate); err == nil {
			return strings.ToLower(addr.Address)
		}
	}
	return ""
}

func findPhone(text string) string {
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, candidate)
		if len(digits) < 7 || len(digits) > 15 {
			continue
		}
		if rangePattern.MatchString(candidate) {
			continue
		}
		return strings.TrimSpace(candidate)
	}
	return ""
}

func findSections(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, line := range strings.Split(text, "\n") {
		key := nlp.Normalize(line)
		if key == "" || len(key) > 30 {
			continue
		}
		section, ok := sectionHeadings[key]
		if !ok {
			continue
		}
		if _, dup := seen[section]; dup {
			continue
		}
		seen[section] = struct{}{}
		out = append(out, section)
	}
	return out
}

// experienceYears prefers an explicit "N years" claim and otherwise spans
// the earliest start to the latest end of any year ranges.
func (s *KeywordScorer) experienceYears(text string) float64 {
	var explicit float64
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > explicit && v <= 60 {
			explicit = v
		}
	}
	if explicit > 0 {
		return explicit
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	current := now().Year()
	start, end := 0, 0
	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		from, _ := strconv.Atoi(m[1])
		to := current
		if y, err := strconv.Atoi(m[2]); err == nil {
			to = y
		}
		if to < from || from > current {
			continue
		}
		if start == 0 || from < start {
			start = from
		}
		if to > end {
			end = to
		}
	}
	if start == 0 {
		return 0
	}
	return float64(end - start)
}

var _ Scorable = (*KeywordScorer)(nil)
