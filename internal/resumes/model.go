package resumes

import "time"

// Status is the pipeline state of a resume.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
)

// Event names a processing log entry.
type Event string

const (
	EventUploaded          Event = "uploaded"
	EventProcessingStarted Event = "processing_started"
	EventExtracted         Event = "extracted"
	EventExtractionFailed  Event = "extraction_failed"
	EventParsingFailed     Event = "parsing_failed"
	EventCompleted         Event = "completed"
	EventRequeued          Event = "requeued"
)

// DefaultMaxRetries is the retry budget given to new resumes.
const DefaultMaxRetries = 3

// LogEntry is one append-only audit record.
type LogEntry struct {
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// ParsedData holds fields extracted from the resume text.
type ParsedData struct {
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Skills          []string `json:"skills"`
	Sections        []string `json:"sections,omitempty"`
	ExperienceYears float64  `json:"experienceYears"`
	MatchedKeywords []string `json:"matchedKeywords"`
	MissingKeywords []string `json:"missingKeywords,omitempty"`
	WordCount       int      `json:"wordCount"`
}

// Resume is the pipeline record. ParsedData and Score are set iff Status is DONE.
type Resume struct {
	ID            string      `json:"id"`
	JobID         string      `json:"jobId"`
	UserID        string      `json:"userId"`
	FilePath      string      `json:"filePath"`
	FileName      string      `json:"fileName"`
	MimeType      string      `json:"mimeType"`
	SizeBytes     int64       `json:"sizeBytes"`
	TextPath      string      `json:"textPath,omitempty"`
	Status        Status      `json:"status"`
	ParsedData    *ParsedData `json:"parsedData,omitempty"`
	Score         *float64    `json:"score,omitempty"`
	RetryCount    int         `json:"retryCount"`
	MaxRetries    int         `json:"maxRetries"`
	ProcessingLog []LogEntry  `json:"processingLog"`
	AttemptID     string      `json:"-"`
	StartedAt     *time.Time  `json:"-"`
	Version       int64       `json:"-"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// RetriesRemaining reports whether another failed attempt is allowed.
func (r Resume) RetriesRemaining() bool {
	return r.RetryCount < r.MaxRetries
}

// LastEvent returns the most recent log event, or "" for an empty log.
func (r Resume) LastEvent() Event {
	if len(r.ProcessingLog) == 0 {
		return ""
	}
	return r.ProcessingLog[len(r.ProcessingLog)-1].Event
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r Resume) Clone() Resume {
	out := r
	out.ProcessingLog = append([]LogEntry(nil), r.ProcessingLog...)
	if r.ParsedData != nil {
		pd := *r.ParsedData
		pd.Skills = append([]string(nil), r.ParsedData.Skills...)
		pd.Sections = append([]string(nil), r.ParsedData.Sections...)
		pd.MatchedKeywords = append([]string(nil), r.ParsedData.MatchedKeywords...)
		pd.MissingKeywords = append([]string(nil), r.ParsedData.MissingKeywords...)
		out.ParsedData = &pd
	}
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	return out
}
