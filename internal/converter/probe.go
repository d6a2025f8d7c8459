package converter

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"camfeed/internal/logging"
)

// DefaultEncoder is the encoder command resolved through PATH when none is configured.
const DefaultEncoder = "ffmpeg"

// EncoderInfo describes an encoder that answered the probe.
type EncoderInfo struct {
	Path string
	// Version is informational and may be empty when the output is not parseable.
	Version string
}

var versionPattern = regexp.MustCompile(`(?m)^\S+ version (\S+)`)

var installGuidance = map[string]string{
	"darwin":  "Install it with Homebrew: brew install ffmpeg",
	"linux":   "Install it with your package manager, e.g. apt-get install ffmpeg (Debian/Ubuntu), dnf install ffmpeg (Fedora) or apk add ffmpeg (Alpine)",
	"windows": "Install it with winget install ffmpeg or choco install ffmpeg, then make sure ffmpeg.exe is on PATH",
	"freebsd": "Install it with pkg install ffmpeg",
}

const genericInstallGuidance = "Download a build from https://ffmpeg.org/download.html and make sure it is on PATH, or set FFMPEG_PATH"

// InstallGuidance returns installation instructions for the given GOOS.
func InstallGuidance(goos string) string {
	if g, ok := installGuidance[goos]; ok {
		return g
	}
	return genericInstallGuidance
}

// ProbeEncoder checks that the encoder can be executed by running it with -version.
// Any successful exit means available; the parsed version is informational only.
// Callers wanting a bound on the probe should pass a context with a deadline.
func ProbeEncoder(ctx context.Context, encoderPath string) (*EncoderInfo, error) {
	if encoderPath == "" {
		encoderPath = DefaultEncoder
	}

	unavailable := func(err error) error {
		return &EncoderUnavailableError{
			Encoder:  encoderPath,
			OS:       runtime.GOOS,
			Guidance: InstallGuidance(runtime.GOOS),
			Err:      err,
		}
	}

	resolved, err := exec.LookPath(encoderPath)
	if err != nil {
		return nil, unavailable(err)
	}

	output, err := exec.CommandContext(ctx, resolved, "-version").CombinedOutput()
	if err != nil {
		return nil, unavailable(err)
	}

	info := &EncoderInfo{Path: resolved}
	if m := versionPattern.FindSubmatch(output); m != nil {
		info.Version = string(m[1])
	} else {
		first := strings.SplitN(strings.TrimSpace(string(output)), "\n", 2)[0]
		logging.Debug("Could not parse encoder version from %q", first)
	}

	return info, nil
}
