package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"camfeed/internal/filesystem"
	"camfeed/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height passed to the encoder.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll process
	MaxImagePixels = 20_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// Limits bounds the size of a prepared still.
type Limits struct {
	MaxDimension int
	MaxPixels    int
}

// DefaultLimits returns MaxImageDimension and MaxImagePixels.
func DefaultLimits() Limits {
	return Limits{MaxDimension: MaxImageDimension, MaxPixels: MaxImagePixels}
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// ConstrainedSize returns the target size for an image of width x height so that
// neither side exceeds limits.MaxDimension and the area stays within limits.MaxPixels.
// Aspect ratio is preserved. The second return value is false when no resize is needed.
func ConstrainedSize(width, height int, limits Limits) (int, int, bool) {
	if width <= 0 || height <= 0 {
		return width, height, false
	}

	needsConstraint := width > limits.MaxDimension || height > limits.MaxDimension ||
		width*height > limits.MaxPixels
	if !needsConstraint {
		return width, height, false
	}

	targetWidth, targetHeight := width, height

	if width > limits.MaxDimension || height > limits.MaxDimension {
		if width > height {
			targetWidth = limits.MaxDimension
			targetHeight = height * limits.MaxDimension / width
		} else {
			targetHeight = limits.MaxDimension
			targetWidth = width * limits.MaxDimension / height
		}
	}

	if targetPixels := targetWidth * targetHeight; targetPixels > limits.MaxPixels {
		scale := float64(limits.MaxPixels) / float64(targetPixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	return targetWidth, targetHeight, true
}

// PrepareStill decodes src, applies its EXIF orientation, downscales it within
// limits and writes the result as PNG to dst. The encoder does not honor EXIF
// orientation on still inputs, so phone photos would otherwise appear rotated.
//
// dst must end in ".png". On error nothing is left at dst.
func PrepareStill(src, dst string, limits Limits) (*ImageDimensions, error) {
	if !strings.EqualFold(filepath.Ext(dst), ".png") {
		return nil, fmt.Errorf("staging path %s must have a .png extension", dst)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if tw, th, resize := ConstrainedSize(width, height, limits); resize {
		logging.Info("Constraining large image %s from %dx%d to %dx%d", src, width, height, tw, th)
		img = imaging.Resize(img, tw, th, imaging.Lanczos)
		width, height = tw, th
	}

	if err := imaging.Save(img, dst); err != nil {
		if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove partial staging image %s: %v", dst, rmErr)
		}
		return nil, fmt.Errorf("failed to write staging image: %w", err)
	}

	logging.Debug("Prepared still %s as %s (%dx%d)", src, dst, width, height)
	return &ImageDimensions{Width: width, Height: height}, nil
}
