package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("resume.status", map[string]any{
		"resume_id": "r-1",
		"attempt":   2,
		"error":     errors.New("boom"),
	})

	line := strings.TrimSpace(buf.String())
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log json %q: %v", line, err)
	}
	if payload["msg"] != "resume.status" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["resume_id"] != "r-1" {
		t.Fatalf("unexpected resume_id: %v", payload["resume_id"])
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["error"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts field")
	}
}

func TestSetLevelSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("error")
	t.Cleanup(func() {
		SetLevel("info")
		SetOutput(os.Stdout)
	})

	Info("dropped", nil)
	Error("kept", nil)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be suppressed at error level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("expected error line, got %s", out)
	}
}
