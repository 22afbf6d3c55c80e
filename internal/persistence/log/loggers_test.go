package log

import (
	"bytes"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordTickReportsFirstWriteFailureOnce(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the events directory belongs makes every
	// rotation attempt fail.
	if err := os.WriteFile(filepath.Join(dir, "events"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	tl := NewTickLogger(dir, stdlog.New(&buf, "", 0))
	defer tl.Close()

	tl.RecordTick(1, "d1", nil)
	tl.RecordTick(2, "d2", nil)
	tl.RecordTick(3, "d3", nil)

	out := buf.String()
	if !strings.Contains(out, "event log write failed") {
		t.Fatalf("first write failure not reported: %q", out)
	}
	if n := strings.Count(out, "event log write failed"); n != 1 {
		t.Fatalf("failure reported %d times, want once", n)
	}
}

func TestRecordTickWritesWithoutLogging(t *testing.T) {
	var buf bytes.Buffer
	tl := NewTickLogger(t.TempDir(), stdlog.New(&buf, "", 0))

	tl.RecordTick(1, "d1", nil)
	if err := tl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestNilLoggerSwallowsFailures(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "events"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tl := NewTickLogger(dir, nil)
	defer tl.Close()
	tl.RecordTick(1, "d", nil)
}
