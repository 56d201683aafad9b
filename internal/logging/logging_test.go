package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text", false)
	if err != nil {
		t.Fatalf("New err = %v", err)
	}
	l.Debug("hidden")
	l.Info("paired", "plugin", "com.example")
	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug record logged at info level: %q", got)
	}
	if !strings.Contains(got, "plugin=com.example") {
		t.Errorf("output = %q", got)
	}
}

func TestNewJSONDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "JSON", true)
	if err != nil {
		t.Fatalf("New err = %v", err)
	}
	l.Debug("queued", "type", "stateUpdate")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if rec["msg"] != "queued" || rec["type"] != "stateUpdate" {
		t.Errorf("record = %v", rec)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", false); err == nil {
		t.Error("New(xml) err = nil")
	}
}

func TestPluginLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Plugin(&buf, "provider", false)
	l.Info("chatty")
	if buf.Len() != 0 {
		t.Errorf("info logged without debug: %q", buf.String())
	}
	if !Plugin(&buf, "provider", true).IsDebug() {
		t.Error("debug logger is not at debug level")
	}
}
