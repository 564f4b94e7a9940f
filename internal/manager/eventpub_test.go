package manager

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogPublisher_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: zerolog.New(&buf)}
	p.Publish(Event{Name: "ensure_error", ModelID: "llama3", Fields: map[string]any{"error": "boom"}})

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("not JSON: %v (%q)", err, buf.String())
	}
	if line["event"] != "ensure_error" || line["model"] != "llama3" || line["error"] != "boom" || line["level"] != "warn" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestMemoryPublisher_Names(t *testing.T) {
	p := NewMemoryPublisher()
	p.Publish(Event{Name: "a"})
	p.Publish(Event{Name: "b"})
	if got := strings.Join(p.Names(), ","); got != "a,b" {
		t.Fatalf("names = %q", got)
	}
	if len(p.Events()) != 2 {
		t.Fatalf("events = %v", p.Events())
	}
}
