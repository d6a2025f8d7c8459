package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"camfeed/internal/mediatypes"
)

func TestNew_Defaults(t *testing.T) {
	conv, err := New(Config{CacheDir: "relative/cache", CacheEnabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := conv.Config()
	if cfg.EncoderPath != DefaultEncoder {
		t.Errorf("EncoderPath = %q, want %q", cfg.EncoderPath, DefaultEncoder)
	}
	if cfg.OutputFormat != mediatypes.FormatMJPEG {
		t.Errorf("OutputFormat = %q, want mjpeg", cfg.OutputFormat)
	}
	if cfg.ImageMode != ImageModeFrame {
		t.Errorf("ImageMode = %q, want frame", cfg.ImageMode)
	}
	if !filepath.IsAbs(conv.CacheDir()) {
		t.Errorf("CacheDir() = %q, want absolute", conv.CacheDir())
	}
	if conv.OutputExtension() != ".mjpeg" {
		t.Errorf("OutputExtension() = %q, want .mjpeg", conv.OutputExtension())
	}
	if cfg.MaxEncoders < 1 {
		t.Errorf("MaxEncoders = %d, want at least 1", cfg.MaxEncoders)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(*Config) {}, wantErr: false},
		{name: "y4m output", mutate: func(c *Config) { c.OutputFormat = mediatypes.FormatY4M }, wantErr: false},
		{name: "unknown output format", mutate: func(c *Config) { c.OutputFormat = "mp4" }, wantErr: true},
		{name: "unknown image mode", mutate: func(c *Config) { c.ImageMode = "slideshow" }, wantErr: true},
		{name: "cache enabled without dir", mutate: func(c *Config) { c.CacheDir = "" }, wantErr: true},
		{name: "cache disabled without dir", mutate: func(c *Config) { c.CacheDir = ""; c.CacheEnabled = false }, wantErr: false},
		{name: "loop without frame rate", mutate: func(c *Config) { c.ImageMode = ImageModeLoop; c.ImageFrameRate = 0 }, wantErr: true},
		{name: "loop with excessive frame rate", mutate: func(c *Config) { c.ImageMode = ImageModeLoop; c.ImageFrameRate = 500 }, wantErr: true},
		{name: "loop with tiny duration", mutate: func(c *Config) { c.ImageMode = ImageModeLoop; c.ImageDuration = time.Millisecond }, wantErr: true},
		{name: "frame mode ignores frame rate", mutate: func(c *Config) { c.ImageFrameRate = 0; c.ImageDuration = 0 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(t.TempDir())
			tt.mutate(&cfg)
			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	t.Run("creates nested cache directory and is idempotent", func(t *testing.T) {
		videoDir := filepath.Join(t.TempDir(), "a", "b", "videos")
		conv, err := New(DefaultConfig(videoDir))
		if err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 2; i++ {
			if err := conv.Initialize(); err != nil {
				t.Fatalf("Initialize() call %d error = %v", i+1, err)
			}
		}

		info, err := os.Stat(filepath.Join(videoDir, CacheDirName))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected cache directory, stat err = %v", err)
		}
	})

	t.Run("no-op when caching disabled", func(t *testing.T) {
		videoDir := filepath.Join(t.TempDir(), "videos")
		cfg := DefaultConfig(videoDir)
		cfg.CacheEnabled = false
		conv, err := New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := conv.Initialize(); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(videoDir, CacheDirName)); !os.IsNotExist(err) {
			t.Errorf("expected no cache directory, stat err = %v", err)
		}
	})
}

func TestConvert_NativeReturnsResolvedSource(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	for _, name := range []string{"feed.mjpeg", "feed.Y4M"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeSource(t, dir, name, []byte("native"))

			wd, err := os.Getwd()
			if err != nil {
				t.Fatal(err)
			}
			rel, err := filepath.Rel(wd, src)
			if err != nil {
				t.Fatal(err)
			}

			got, err := conv.Convert(context.Background(), rel)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if got != src {
				t.Errorf("Convert() = %q, want %q", got, src)
			}
		})
	}

	if n := len(encoder.Invocations(t)); n != 0 {
		t.Errorf("encoder invoked %d times for native input", n)
	}
	entries, _ := os.ReadDir(conv.CacheDir())
	if len(entries) != 0 {
		t.Errorf("cache should be untouched, found %d entries", len(entries))
	}
}

func TestConvert_SourceNotFound(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	missing := filepath.Join(t.TempDir(), "missing.mp4")
	_, err := conv.Convert(context.Background(), missing)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}

	var snf *SourceNotFoundError
	if !errors.As(err, &snf) || snf.Path != missing {
		t.Errorf("expected SourceNotFoundError for %s, got %#v", missing, err)
	}

	if _, err := conv.Convert(context.Background(), t.TempDir()); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound for a directory, got %v", err)
	}
}

func TestConvert_UnsupportedFormat(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "notes.txt", []byte("hello"))

	_, err := conv.Convert(context.Background(), src)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	var uf *UnsupportedFormatError
	if !errors.As(err, &uf) {
		t.Fatalf("expected *UnsupportedFormatError, got %T", err)
	}
	if uf.Extension != ".txt" {
		t.Errorf("Extension = %q, want .txt", uf.Extension)
	}

	msg := err.Error()
	for _, want := range append([]string{".txt", src}, mediatypes.SupportedExtensions()...) {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}

	if n := len(encoder.Invocations(t)); n != 0 {
		t.Errorf("encoder invoked %d times for unsupported input", n)
	}
	entries, _ := os.ReadDir(conv.CacheDir())
	if len(entries) != 0 {
		t.Errorf("cache should be untouched, found %d entries", len(entries))
	}
}

func TestConvert_VideoMissThenHit(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, videoDir := testConfig(t, encoder)
	obs := &recordingObserver{}
	cfg.Observer = obs
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("not really an mp4"))
	fingerprint, err := Fingerprint(src)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(videoDir, CacheDirName, fingerprint+".mjpeg")

	first, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("first Convert() error = %v", err)
	}
	if first != want {
		t.Errorf("first Convert() = %q, want %q", first, want)
	}

	data, err := os.ReadFile(first)
	if err != nil || string(data) != "FAKEFRAME" {
		t.Fatalf("cache entry content = %q, err = %v", data, err)
	}
	if _, err := os.Stat(first + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone after rename, stat err = %v", err)
	}

	invocations := encoder.Invocations(t)
	if len(invocations) != 1 {
		t.Fatalf("encoder invoked %d times, want 1", len(invocations))
	}
	args := invocations[0]
	if strings.Contains(args, "-frames:v") {
		t.Errorf("video conversion should not use single-frame flag: %s", args)
	}
	for _, want := range []string{"-i " + src, "-pix_fmt yuvj420p", "-q:v 2", "-f mjpeg", first + TempSuffix} {
		if !strings.Contains(args, want) {
			t.Errorf("encoder args missing %q: %s", want, args)
		}
	}

	second, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("second Convert() error = %v", err)
	}
	if second != first {
		t.Errorf("second Convert() = %q, want %q", second, first)
	}
	if n := len(encoder.Invocations(t)); n != 1 {
		t.Errorf("encoder invoked %d times after cache hit, want 1", n)
	}

	if len(obs.misses) != 1 || len(obs.hits) != 1 || len(obs.conversions) != 1 {
		t.Errorf("observer saw misses=%d hits=%d conversions=%d, want 1/1/1",
			len(obs.misses), len(obs.hits), len(obs.conversions))
	}
	if obs.errs[0] != nil {
		t.Errorf("observed conversion error = %v", obs.errs[0])
	}
	if obs.hits[0].Class != mediatypes.ConvertibleVideo {
		t.Errorf("hit class = %v, want video", obs.hits[0].Class)
	}
}

func TestConvert_IdenticalContentAtDifferentPathsSharesEntry(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	content := bytes.Repeat([]byte("abc"), 1000)
	a := writeSource(t, t.TempDir(), "a.mp4", content)
	b := writeSource(t, t.TempDir(), "b.webm", content)

	pa, err := conv.Convert(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := conv.Convert(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}

	if pa != pb {
		t.Errorf("identical content produced different entries: %s vs %s", pa, pb)
	}
	if n := len(encoder.Invocations(t)); n != 1 {
		t.Errorf("encoder invoked %d times, want 1", n)
	}
}

func TestConvert_ImageSingleFrame(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "photo.png", []byte("png bytes"))

	out, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if filepath.Ext(out) != ".mjpeg" {
		t.Errorf("output extension = %s, want .mjpeg", filepath.Ext(out))
	}

	invocations := encoder.Invocations(t)
	if len(invocations) != 1 {
		t.Fatalf("encoder invoked %d times, want 1", len(invocations))
	}
	if !strings.Contains(invocations[0], "-frames:v 1") {
		t.Errorf("image conversion should request a single frame: %s", invocations[0])
	}
	if strings.Contains(invocations[0], "-loop 1") {
		t.Errorf("single-frame mode should not loop: %s", invocations[0])
	}
}

func TestConvert_ImageLoopMode(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	cfg.ImageMode = ImageModeLoop
	cfg.ImageFrameRate = 15
	cfg.ImageDuration = 2500 * time.Millisecond
	cfg.OutputFormat = mediatypes.FormatY4M
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "photo.jpg", []byte("jpg bytes"))

	out, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if filepath.Ext(out) != ".y4m" {
		t.Errorf("output extension = %s, want .y4m", filepath.Ext(out))
	}

	args := encoder.Invocations(t)[0]
	for _, want := range []string{"-loop 1 -framerate 15 -i", "-t 2.5", "-pix_fmt yuv420p", "-f yuv4mpegpipe"} {
		if !strings.Contains(args, want) {
			t.Errorf("encoder args missing %q: %s", want, args)
		}
	}
	for _, unwanted := range []string{"-frames:v", "-q:v"} {
		if strings.Contains(args, unwanted) {
			t.Errorf("encoder args should not contain %q: %s", unwanted, args)
		}
	}
}

func TestConvert_FailureLeavesNoFiles(t *testing.T) {
	encoder := newFakeEncoder(t, encoderFails)
	cfg, _ := testConfig(t, encoder)
	obs := &recordingObserver{}
	cfg.Observer = obs
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mov", []byte("corrupt"))
	fingerprint, err := Fingerprint(src)
	if err != nil {
		t.Fatal(err)
	}
	final := filepath.Join(conv.CacheDir(), fingerprint+".mjpeg")

	_, err = conv.Convert(context.Background(), src)
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}

	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConversionError, got %T", err)
	}
	if ce.Output != "Invalid data found when processing input" {
		t.Errorf("Output = %q, want encoder stderr", ce.Output)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error message should carry stderr: %v", err)
	}

	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Errorf("final cache path must not exist after failure, stat err = %v", err)
	}
	if _, err := os.Stat(final + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("temp file must be removed after failure, stat err = %v", err)
	}
	if _, ok := conv.GetCachedPath(src); ok {
		t.Error("GetCachedPath should miss after a failed conversion")
	}
	if len(obs.errs) != 1 || obs.errs[0] == nil {
		t.Errorf("observer should see one failed conversion, got %v", obs.errs)
	}
}

func TestConvert_FailureWithoutStderrFallsBackToExitStatus(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSilent)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.avi", []byte("x"))

	_, err := conv.Convert(context.Background(), src)
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("expected exit status in message, got %v", err)
	}
}

func TestConvert_SuccessWithoutOutputIsFailure(t *testing.T) {
	encoder := newFakeEncoder(t, encoderNoOutput)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("x"))

	if _, err := conv.Convert(context.Background(), src); !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
}

func TestConvert_CancelledContext(t *testing.T) {
	encoder := newFakeEncoder(t, `exec sleep 5`)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("x"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := conv.Convert(ctx, src)
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped context.DeadlineExceeded, got %v", err)
	}
	if _, ok := conv.GetCachedPath(src); ok {
		t.Error("cancelled conversion must not populate the cache")
	}
}

func TestConvert_WaitsForEncoderSlot(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	cfg.MaxEncoders = 1
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("queued"))

	// Occupy the only slot.
	conv.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conv.Convert(ctx, src)
	if !errors.Is(err, ErrConversionFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a deadline while waiting for a slot, got %v", err)
	}
	if len(encoder.Invocations(t)) != 0 {
		t.Error("encoder must not run without a slot")
	}

	<-conv.slots
	if _, err := conv.Convert(context.Background(), src); err != nil {
		t.Fatalf("Convert() after slot freed error = %v", err)
	}
	if len(conv.slots) != 0 {
		t.Error("slot must be released after the encoder finishes")
	}
}

func TestConvert_CacheDisabledWritesSibling(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, videoDir := testConfig(t, encoder)
	cfg.CacheEnabled = false
	conv := newTestConverter(t, cfg)

	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "clip.mp4", []byte("video"))

	out, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if want := filepath.Join(srcDir, "clip.mjpeg"); out != want {
		t.Errorf("Convert() = %q, want %q", out, want)
	}
	if _, err := os.Stat(filepath.Join(videoDir, CacheDirName)); !os.IsNotExist(err) {
		t.Errorf("cache directory should not be created, stat err = %v", err)
	}
	if _, ok := conv.GetCachedPath(src); ok {
		t.Error("GetCachedPath must miss when caching is disabled")
	}

	// Without a cache every call re-encodes.
	if _, err := conv.Convert(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if n := len(encoder.Invocations(t)); n != 2 {
		t.Errorf("encoder invoked %d times, want 2", n)
	}
}

func TestConvert_ConcurrentCallersShareOneRun(t *testing.T) {
	encoder := newFakeEncoder(t, `sleep 0.3; printf 'FAKEFRAME' > "$last"`)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("shared"))

	const callers = 5
	results := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = conv.Convert(context.Background(), src)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d got %q, want %q", i, results[i], results[0])
		}
	}
	if n := len(encoder.Invocations(t)); n != 1 {
		t.Errorf("encoder invoked %d times, want 1", n)
	}
}

func TestConvert_CallerCancelDoesNotFailOthers(t *testing.T) {
	encoder := newFakeEncoder(t, `sleep 0.5; printf 'FAKEFRAME' > "$last"`)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("two callers"))
	fingerprint, err := Fingerprint(src)
	if err != nil {
		t.Fatal(err)
	}
	key := conv.cachePath(fingerprint)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	type result struct {
		path string
		err  error
	}
	resA := make(chan result, 1)
	resB := make(chan result, 1)
	go func() {
		path, err := conv.Convert(ctxA, src)
		resA <- result{path, err}
	}()
	go func() {
		path, err := conv.Convert(context.Background(), src)
		resB <- result{path, err}
	}()

	waiters := func() int {
		conv.flightsMu.Lock()
		defer conv.flightsMu.Unlock()
		if f, ok := conv.flights[key]; ok {
			return f.waiters
		}
		return 0
	}
	deadline := time.Now().Add(2 * time.Second)
	for waiters() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("both callers did not join the run, waiters = %d", waiters())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancelA()

	a := <-resA
	if !errors.Is(a.err, ErrConversionFailed) || !errors.Is(a.err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want wrapped context.Canceled", a.err)
	}

	b := <-resB
	if b.err != nil {
		t.Fatalf("remaining caller error = %v", b.err)
	}
	if b.path != key {
		t.Errorf("remaining caller got %q, want %q", b.path, key)
	}
	if _, err := os.Stat(b.path); err != nil {
		t.Errorf("converted output missing: %v", err)
	}
	if n := len(encoder.Invocations(t)); n != 1 {
		t.Errorf("encoder invoked %d times, want 1", n)
	}
	if w := waiters(); w != 0 {
		t.Errorf("waiters after both callers returned = %d, want 0", w)
	}
}

func TestConvert_LastCallerCancelStopsEncoder(t *testing.T) {
	encoder := newFakeEncoder(t, `exec sleep 5`)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("abandoned"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := conv.Convert(ctx, src); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a deadline, got %v", err)
	}

	// The abandoned run releases its slot once the encoder is stopped.
	deadline := time.Now().Add(2 * time.Second)
	for len(conv.slots) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("encoder slot still held after the last caller left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetCachedPath(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("lookup"))

	if _, ok := conv.GetCachedPath(src); ok {
		t.Error("GetCachedPath should miss before conversion")
	}
	if _, ok := conv.GetCachedPath(filepath.Join(t.TempDir(), "missing.mp4")); ok {
		t.Error("GetCachedPath should miss for a missing source")
	}

	out, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := conv.GetCachedPath(src)
	if !ok || got != out {
		t.Errorf("GetCachedPath() = (%q, %v), want (%q, true)", got, ok, out)
	}
	if n := len(encoder.Invocations(t)); n != 1 {
		t.Errorf("GetCachedPath must not invoke the encoder, count = %d", n)
	}
}

func TestClearCache(t *testing.T) {
	encoder := newFakeEncoder(t, encoderSucceeds)
	cfg, _ := testConfig(t, encoder)
	conv := newTestConverter(t, cfg)

	src := writeSource(t, t.TempDir(), "clip.mp4", []byte("clear me"))
	out, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	stray := filepath.Join(conv.CacheDir(), strings.Repeat("a", 64)+".y4m"+TempSuffix)
	if err := os.WriteFile(stray, []byte("half"), 0o644); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(conv.CacheDir(), "manifest.db")
	if err := os.WriteFile(keep, []byte("db"), 0o644); err != nil {
		t.Fatal(err)
	}

	freed, err := conv.ClearCache()
	if err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if want := int64(len("FAKEFRAME") + len("half")); freed != want {
		t.Errorf("ClearCache() freed %d bytes, want %d", freed, want)
	}

	for _, gone := range []string{out, stray} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should be removed, stat err = %v", gone, err)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("unrelated file should be kept: %v", err)
	}
}

func TestIsCacheFile(t *testing.T) {
	hex := strings.Repeat("0f", 32)
	tests := []struct {
		name string
		want bool
	}{
		{hex + ".mjpeg", true},
		{hex + ".y4m", true},
		{hex + ".mjpeg.tmp", true},
		{hex + ".mjpeg.tmp.png", true},
		{hex + ".mp4", false},
		{"manifest.db", false},
		{"manifest.db-wal", false},
		{strings.ToUpper(hex) + ".mjpeg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCacheFile(tt.name); got != tt.want {
				t.Errorf("isCacheFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestEncoderArgsNeverUseShell(t *testing.T) {
	conv, err := New(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	input := "/videos/it's a \"clip\"; rm -rf $HOME.mp4"
	args := conv.encoderArgs(input, "/out.mjpeg.tmp", mediatypes.ConvertibleVideo)

	found := false
	for i, a := range args {
		if a == "-i" && i+1 < len(args) && args[i+1] == input {
			found = true
		}
	}
	if !found {
		t.Errorf("input path should be passed verbatim as a single argument: %q", args)
	}
	if args[len(args)-1] != "/out.mjpeg.tmp" {
		t.Errorf("output path should be the last argument: %q", args)
	}
}
