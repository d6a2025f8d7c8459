package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatClass represents how a source file must be treated before it can be used as a feed.
type FormatClass string

const (
	// Native is already in a container the browser's fake camera can read.
	Native FormatClass = "native"
	// ConvertibleVideo is a video container the encoder can transcode.
	ConvertibleVideo FormatClass = "video"
	// ConvertibleImage is a still image the encoder can turn into a feed.
	ConvertibleImage FormatClass = "image"
	// Unrecognized is any extension outside the allow-list.
	Unrecognized FormatClass = "unrecognized"
)

// OutputFormat is one of the native containers the converter can produce.
type OutputFormat string

const (
	// FormatMJPEG is a raw Motion JPEG stream.
	FormatMJPEG OutputFormat = "mjpeg"
	// FormatY4M is a YUV4MPEG2 stream.
	FormatY4M OutputFormat = "y4m"
)

// NativeExtensions maps file extensions to whether they are native feed formats.
var NativeExtensions = map[string]bool{
	".mjpeg": true,
	".mjpg":  true,
	".y4m":   true,
}

// feedExtensions maps native extensions to the extension a published feed uses.
// The browser's fake capture device only reads .mjpeg and .y4m, so .mjpg
// streams are published as .mjpeg.
var feedExtensions = map[string]string{
	".mjpeg": ".mjpeg",
	".mjpg":  ".mjpeg",
	".y4m":   ".y4m",
}

// FeedExtensions lists the extensions the browser reads, in lookup order.
var FeedExtensions = []string{".mjpeg", ".y4m"}

// VideoExtensions maps file extensions to whether they are convertible video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".m4v":  true,
	".gif":  true,
}

// ImageExtensions maps file extensions to whether they are convertible still images.
var ImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

// Extension returns the lower-cased extension of path including the leading dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify returns the FormatClass for path based on its extension alone.
// Unknown or missing extensions return Unrecognized.
func Classify(path string) FormatClass {
	return ClassifyExtension(Extension(path))
}

// ClassifyExtension is Classify for a bare extension such as ".PNG" or ".png".
func ClassifyExtension(ext string) FormatClass {
	ext = strings.ToLower(ext)
	switch {
	case NativeExtensions[ext]:
		return Native
	case VideoExtensions[ext]:
		return ConvertibleVideo
	case ImageExtensions[ext]:
		return ConvertibleImage
	default:
		return Unrecognized
	}
}

// FeedExtension returns the extension a feed file for path must carry, or false
// when path is not native.
func FeedExtension(path string) (string, bool) {
	ext, ok := feedExtensions[Extension(path)]
	return ext, ok
}

// IsFeedFile reports whether the browser can read path directly as a camera feed.
func IsFeedFile(path string) bool {
	ext := Extension(path)
	return ext == ".mjpeg" || ext == ".y4m"
}

// RequiresConversion reports whether path must go through the encoder before use.
func RequiresConversion(path string) bool {
	switch Classify(path) {
	case ConvertibleVideo, ConvertibleImage:
		return true
	default:
		return false
	}
}

// SupportedExtensions returns every recognized extension, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(NativeExtensions)+len(VideoExtensions)+len(ImageExtensions))
	for _, table := range []map[string]bool{NativeExtensions, VideoExtensions, ImageExtensions} {
		for ext := range table {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// ParseOutputFormat accepts "mjpeg", "y4m" or either with a leading dot.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "mjpeg", "mjpg":
		return FormatMJPEG, true
	case "y4m":
		return FormatY4M, true
	default:
		return "", false
	}
}

// Extension returns the file extension written for this format, including the dot.
func (f OutputFormat) Extension() string {
	if f == FormatY4M {
		return ".y4m"
	}
	return ".mjpeg"
}

// Muxer returns the encoder output muxer name for this format.
func (f OutputFormat) Muxer() string {
	if f == FormatY4M {
		return "yuv4mpegpipe"
	}
	return "mjpeg"
}

// PixelFormat returns the pixel format compatible with the container's color model.
// MJPEG carries full-range JPEG YUV; Y4M readers expect limited-range 4:2:0.
func (f OutputFormat) PixelFormat() string {
	if f == FormatY4M {
		return "yuv420p"
	}
	return "yuvj420p"
}

// Valid reports whether f is a known output format.
func (f OutputFormat) Valid() bool {
	return f == FormatMJPEG || f == FormatY4M
}
