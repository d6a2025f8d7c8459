package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEncoder writes a POSIX shell script that mimics the encoder: it appends its
// argument list to a log file, answers -version, and then runs body with $last set
// to the final argument (the output path).
type fakeEncoder struct {
	Path    string
	LogPath string
}

const (
	encoderSucceeds = `printf 'FAKEFRAME' > "$last"`
	encoderFails    = `printf 'partial' > "$last"; echo "Invalid data found when processing input" >&2; exit 1`
	encoderSilent   = `exit 3`
	encoderNoOutput = `exit 0`
)

func newFakeEncoder(t *testing.T, body string) *fakeEncoder {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake encoder script requires a POSIX shell")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "invocations.log")
	script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 6.1.1-fake Copyright (c) 2000-2023 the FFmpeg developers"
  exit 0
fi
printf '%%s\n' "$*" >> %q
for last; do :; done
%s
`, logPath, body)

	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake encoder: %v", err)
	}
	return &fakeEncoder{Path: path, LogPath: logPath}
}

// Invocations returns one entry per encoder run, each the space-joined argv.
func (f *fakeEncoder) Invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.LogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read encoder log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// testConfig returns a caching config under a fresh video directory.
func testConfig(t *testing.T, encoder *fakeEncoder) (Config, string) {
	t.Helper()
	videoDir := filepath.Join(t.TempDir(), "videos")
	cfg := DefaultConfig(videoDir)
	cfg.EncoderPath = encoder.Path
	cfg.AutoOrient = false
	return cfg, videoDir
}

func newTestConverter(t *testing.T, cfg Config) *Converter {
	t.Helper()
	conv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := conv.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return conv
}

func writeSource(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

type recordingObserver struct {
	mu          sync.Mutex
	hits        []Entry
	misses      []Entry
	conversions []Entry
	errs        []error
}

func (o *recordingObserver) ObserveCacheHit(e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits = append(o.hits, e)
}

func (o *recordingObserver) ObserveCacheMiss(e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses = append(o.misses, e)
}

func (o *recordingObserver) ObserveConversion(e Entry, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conversions = append(o.conversions, e)
	o.errs = append(o.errs, err)
}
