package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestProbeEncoder_Available(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)

	info, err := ProbeEncoder(context.Background(), encoder.Path)
	if err != nil {
		t.Fatalf("ProbeEncoder() error = %v", err)
	}
	if info.Path != encoder.Path {
		t.Errorf("Path = %q, want %q", info.Path, encoder.Path)
	}
	if info.Version != "6.1.1-fake" {
		t.Errorf("Version = %q, want 6.1.1-fake", info.Version)
	}
	if n := len(encoder.Invocations(t)); n != 0 {
		t.Errorf("probe should not log a conversion run, got %d", n)
	}
}

func TestProbeEncoder_UnparseableVersionStillAvailable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "encoder")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho custom build\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := ProbeEncoder(context.Background(), path)
	if err != nil {
		t.Fatalf("ProbeEncoder() error = %v", err)
	}
	if info.Version != "" {
		t.Errorf("Version = %q, want empty", info.Version)
	}
}

func TestProbeEncoder_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")

	_, err := ProbeEncoder(context.Background(), missing)
	if !errors.Is(err, ErrEncoderUnavailable) {
		t.Fatalf("expected ErrEncoderUnavailable, got %v", err)
	}

	var eu *EncoderUnavailableError
	if !errors.As(err, &eu) {
		t.Fatalf("expected *EncoderUnavailableError, got %T", err)
	}
	if eu.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", eu.OS, runtime.GOOS)
	}
	if eu.Guidance == "" || !strings.Contains(err.Error(), eu.Guidance) {
		t.Errorf("error should include guidance: %v", err)
	}
}

func TestProbeEncoder_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "broken")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 127\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := ProbeEncoder(context.Background(), path); !errors.Is(err, ErrEncoderUnavailable) {
		t.Errorf("expected ErrEncoderUnavailable, got %v", err)
	}
}

func TestProbeEncoder_RespectsDeadline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "hangs")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ProbeEncoder(ctx, path)
	if !errors.Is(err, ErrEncoderUnavailable) {
		t.Errorf("expected ErrEncoderUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("probe ignored deadline, took %v", elapsed)
	}
}

func TestInstallGuidance(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows", "freebsd"} {
		if g := InstallGuidance(goos); g == genericInstallGuidance {
			t.Errorf("expected specific guidance for %s", goos)
		}
	}
	if g := InstallGuidance("plan9"); g != genericInstallGuidance {
		t.Errorf("InstallGuidance(plan9) = %q, want generic", g)
	}
}

func TestConverterProbe(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	info, err := conv.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Version == "" {
		t.Error("expected a version from the fake encoder")
	}
}
