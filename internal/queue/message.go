package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current payload schema version.
const MessageVersion = 1

// Message asks a worker to run one processing attempt for a resume.
type Message struct {
	ResumeID   string `json:"resumeId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
	// Attempt is the resume's retry_count when the message was produced.
	Attempt int `json:"attempt"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(resumeID, requestID string, attempt int) Message {
	return Message{
		ResumeID:   resumeID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Version:    MessageVersion,
		Attempt:    attempt,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
