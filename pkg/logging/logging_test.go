package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"json", func(t *testing.T, out string) {
			var entry map[string]any
			if err := json.Unmarshal([]byte(out), &entry); err != nil {
				t.Fatalf("output is not JSON: %q", out)
			}
			if entry[FieldBallotBoxID] != "1001" || entry["msg"] != "verified" {
				t.Fatalf("unexpected entry: %v", entry)
			}
		}},
		{"text", func(t *testing.T, out string) {
			if !strings.Contains(out, "ballot_box_id=1001") || !strings.Contains(out, "msg=verified") {
				t.Fatalf("unexpected text output: %q", out)
			}
		}},
		// A bytes.Buffer is not a terminal
		{"auto", func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "{") {
				t.Fatalf("expected JSON for non-terminal output, got %q", out)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Options{Format: tt.format, Output: &buf})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("verified", slog.String(FieldBallotBoxID, "1001"))
			tt.check(t, buf.String())
		})
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "text", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", Error(errors.New("boom")))
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestNewComponentLoggerNil(t *testing.T) {
	NewComponentLogger(nil, "pipeline").Info("discarded")
}
