package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"camfeed/internal/browser"
	"camfeed/internal/converter"
	"camfeed/internal/database"
	"camfeed/internal/feed"
	"camfeed/internal/startup"

	"golang.org/x/term"
)

const (
	// Default timeout for manifest operations
	defaultTimeout = 30 * time.Second
	probeTimeout   = 5 * time.Second
)

func main() {
	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage(stdout)
		return 0
	}
	if command == "args" {
		return printArgs(rest, stdout, stderr)
	}

	config, err := startup.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	conv, err := converter.New(config.ConverterConfig(nil))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch command {
	case "convert":
		return convertSource(ctx, conv, rest, stdout, stderr)
	case "lookup":
		return lookupSource(conv, rest, stdout, stderr)
	case "swap":
		return swapFeed(ctx, conv, config, rest, stdout, stderr)
	case "probe":
		return probeEncoder(ctx, conv, stdout, stderr)
	case "clear-cache":
		return clearCache(ctx, conv, config, rest, stdin, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return 2
	}
}

// sanitizeCommand replaces anything outside [A-Za-z0-9_-] with '_' for display.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "camfeed - fake camera feeds for browser tests")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: camfeed <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert <source>          - Convert a source and print the feed file path")
	fmt.Fprintln(w, "  lookup <source>           - Print the cached feed path, exit 1 if not cached")
	fmt.Fprintln(w, "  swap <worker> <source>    - Convert a source and publish it as the worker's feed")
	fmt.Fprintln(w, "  probe                     - Check that the encoder can be run")
	fmt.Fprintln(w, "  clear-cache [-yes]        - Remove all converted files and reset the manifest")
	fmt.Fprintln(w, "  args [-auto-accept] [-json] <feed>")
	fmt.Fprintln(w, "                            - Print browser flags that play a feed file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  VIDEO_DIR, FFMPEG_PATH, CACHE_ENABLED, OUTPUT_FORMAT, IMAGE_MODE and the")
	fmt.Fprintln(w, "  other server settings apply. CAMFEED_CONFIG names an optional YAML file.")
}

func convertSource(ctx context.Context, conv *converter.Converter, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: camfeed convert <source>")
		return 2
	}
	if err := conv.Initialize(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	start := time.Now()
	path, err := conv.Convert(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	fmt.Fprintln(stdout, path)
	fmt.Fprintf(stderr, "Ready in %v\n", time.Since(start).Round(time.Millisecond))
	return 0
}

func lookupSource(conv *converter.Converter, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: camfeed lookup <source>")
		return 2
	}
	path, ok := conv.GetCachedPath(args[0])
	if !ok {
		fmt.Fprintln(stderr, "Not cached")
		return 1
	}
	fmt.Fprintln(stdout, path)
	return 0
}

func swapFeed(ctx context.Context, conv *converter.Converter, config *startup.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "Usage: camfeed swap <worker> <source>")
		return 2
	}
	if err := conv.Initialize(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	publisher, err := feed.NewPublisher(config.VideoDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	info, err := feed.NewSwapper(conv, publisher).Swap(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	fmt.Fprintln(stdout, info.Path)
	return 0
}

func probeEncoder(ctx context.Context, conv *converter.Converter, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	info, err := conv.Probe(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Encoder: %s\n", info.Path)
	if info.Version != "" {
		fmt.Fprintf(stdout, "Version: %s\n", info.Version)
	}
	return 0
}

func clearCache(ctx context.Context, conv *converter.Converter, config *startup.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clear-cache", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !*yes && isTerminal(stdin) {
		if !confirm(stdin, stderr, fmt.Sprintf("Remove all converted files in %s?", config.CacheDir)) {
			fmt.Fprintln(stderr, "Aborted")
			return 1
		}
	}

	freed, err := conv.ClearCache()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Freed %d bytes\n", freed)

	if !config.ManifestActive() {
		return 0
	}
	if _, err := os.Stat(config.ManifestPath); err != nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	manifest, err := database.New(ctx, config.ManifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failed to open manifest: %v\n", err)
		return 0
	}
	defer func() {
		if err := manifest.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close manifest: %v\n", err)
		}
	}()

	rows, err := manifest.Reset(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to reset manifest: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Removed %d manifest entries\n", rows)
	return 0
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question and defaults to no.
func confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("args", flag.ContinueOnError)
	fs.SetOutput(stderr)
	autoAccept := fs.Bool("auto-accept", false, "also auto-accept the camera permission prompt")
	asJSON := fs.Bool("json", false, "print a goog:chromeOptions capabilities fragment")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: camfeed args [-auto-accept] [-json] <feed>")
		return 2
	}

	cam, err := browser.NewFakeCamera(fs.Arg(0), *autoAccept)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *asJSON {
		data, err := json.MarshalIndent(cam.ChromeOptions(), "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}
	for _, arg := range cam.Args() {
		fmt.Fprintln(stdout, arg)
	}
	return 0
}

// exitCode distinguishes bad input (3) from encoder failures (4).
func exitCode(err error) int {
	switch {
	case errors.Is(err, converter.ErrSourceNotFound),
		errors.Is(err, converter.ErrUnsupportedFormat),
		errors.Is(err, feed.ErrInvalidWorker):
		return 3
	case errors.Is(err, converter.ErrConversionFailed),
		errors.Is(err, converter.ErrEncoderUnavailable):
		return 4
	default:
		return 1
	}
}
