package browser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"camfeed/internal/mediatypes"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// FlagFakeDevice replaces real capture devices with fake ones.
	FlagFakeDevice = "--use-fake-device-for-media-stream"
	// FlagFakeVideoFile names the file the fake camera plays.
	FlagFakeVideoFile = "--use-file-for-fake-video-capture"
	// FlagFakeUI auto-accepts the camera permission prompt.
	FlagFakeUI = "--use-fake-ui-for-media-stream"
)

// ChromeOptionsKey is the WebDriver capability key for Chromium options.
const ChromeOptionsKey = "goog:chromeOptions"

// FakeCamera configures a browser to read a feed file as its camera.
type FakeCamera struct {
	FeedPath         string `json:"feedPath" yaml:"feedPath"`
	AutoAcceptPrompt bool   `json:"autoAcceptPrompt" yaml:"autoAcceptPrompt"`
}

// NewFakeCamera returns a validated FakeCamera. feedPath is made absolute.
func NewFakeCamera(feedPath string, autoAccept bool) (FakeCamera, error) {
	abs, err := filepath.Abs(feedPath)
	if err != nil {
		return FakeCamera{}, fmt.Errorf("failed to resolve feed path: %w", err)
	}
	cam := FakeCamera{FeedPath: abs, AutoAcceptPrompt: autoAccept}
	if err := cam.Validate(); err != nil {
		return FakeCamera{}, err
	}
	return cam, nil
}

// Validate checks that the feed path is absolute and names a native feed file.
func (c FakeCamera) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FeedPath,
			validation.Required,
			validation.By(func(v interface{}) error {
				p, _ := v.(string)
				if !filepath.IsAbs(p) {
					return errors.New("must be an absolute path")
				}
				if !mediatypes.IsFeedFile(p) {
					return errors.New("must be a native feed file (.mjpeg or .y4m)")
				}
				return nil
			}),
		),
	)
}

// Args returns the browser flags for this camera.
func (c FakeCamera) Args() []string {
	args := []string{
		FlagFakeDevice,
		FlagFakeVideoFile + "=" + c.FeedPath,
	}
	if c.AutoAcceptPrompt {
		args = append(args, FlagFakeUI)
	}
	return args
}

// Merge returns existing with any fake-capture flags replaced by this camera's.
// Unrelated flags keep their order. existing is not modified.
func (c FakeCamera) Merge(existing []string) []string {
	merged := make([]string, 0, len(existing)+3)
	for _, arg := range existing {
		if isFakeCaptureFlag(arg) {
			continue
		}
		merged = append(merged, arg)
	}
	return append(merged, c.Args()...)
}

// ChromeOptions returns a WebDriver capabilities fragment carrying Args.
func (c FakeCamera) ChromeOptions() map[string]interface{} {
	return map[string]interface{}{
		ChromeOptionsKey: map[string]interface{}{
			"args": c.Args(),
		},
	}
}

func isFakeCaptureFlag(arg string) bool {
	name, _, _ := strings.Cut(arg, "=")
	switch name {
	case FlagFakeDevice, FlagFakeVideoFile, FlagFakeUI:
		return true
	}
	return false
}
