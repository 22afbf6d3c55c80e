package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxfab.dev/internal/protocol"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickLogEntry is one tick's record in the event log.
type TickLogEntry struct {
	Tick   uint64              `json:"tick"`
	Digest string              `json:"digest"`
	Events []protocol.EventObs `json:"events,omitempty"`
}

// TickLogger writes one JSONL entry per tick (compressed). It satisfies
// the world recorder contract.
type TickLogger struct {
	w   *JSONLZstdWriter
	log *stdlog.Logger

	warnOnce sync.Once
}

func NewTickLogger(saveDir string, logger *stdlog.Logger) *TickLogger {
	return &TickLogger{
		w:   NewJSONLZstdWriter(filepath.Join(saveDir, "events"), "events"),
		log: logger,
	}
}

// RecordTick is called from the tick loop, so a failing disk must not
// stall or spam. The first failure is reported once; the writer retries
// every tick and resumes silently if the disk recovers.
func (l *TickLogger) RecordTick(tick uint64, digest string, events []protocol.EventObs) {
	if err := l.w.Write(TickLogEntry{Tick: tick, Digest: digest, Events: events}); err != nil {
		l.warnOnce.Do(func() {
			if l.log != nil {
				l.log.Printf("event log write failed at tick %d (further errors suppressed): %v", tick, err)
			}
		})
	}
}

func (l *TickLogger) Close() error { return l.w.Close() }
