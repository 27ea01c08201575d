package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestLogMetricFields(t *testing.T) {
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.LogMetric("metrics", "frames", 7, "", nil)

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("metric line is not JSON: %v (%q)", err, buf.String())
	}
	if out["component"] != "metrics" || out["metric"] != "frames" {
		t.Fatalf("metric fields missing: %v", out)
	}
	if out["metric_type"] != "counter" {
		t.Fatalf("metric_type should default to counter, got %v", out["metric_type"])
	}
	if out["value"] != float64(7) {
		t.Fatalf("value = %v, want 7", out["value"])
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}
