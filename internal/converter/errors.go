package converter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure taxonomy. The concrete error types below
// match them with errors.Is.
var (
	ErrSourceNotFound     = errors.New("source not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrConversionFailed   = errors.New("conversion failed")
	ErrEncoderUnavailable = errors.New("encoder unavailable")
)

// SourceNotFoundError is returned when the input path does not exist or cannot be read.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source file not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("source file not found: %s", e.Path)
}

func (e *SourceNotFoundError) Is(target error) bool { return target == ErrSourceNotFound }

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned for extensions outside the allow-list.
type UnsupportedFormatError struct {
	Path      string
	Extension string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported format %q for %s; supported extensions: %s",
		ext, e.Path, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ConversionError is returned when the encoder ran but did not produce a feed file.
// Output holds the encoder's error stream, trimmed.
type ConversionError struct {
	Source string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	detail := e.Output
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = "unknown error"
	}
	return fmt.Sprintf("failed to convert %s: %s", e.Source, detail)
}

func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

func (e *ConversionError) Unwrap() error { return e.Err }

// EncoderUnavailableError is returned by ProbeEncoder when the encoder cannot be executed.
type EncoderUnavailableError struct {
	Encoder  string
	OS       string
	Guidance string
	Err      error
}

func (e *EncoderUnavailableError) Error() string {
	return fmt.Sprintf("encoder %q is not available: %v. %s", e.Encoder, e.Err, e.Guidance)
}

func (e *EncoderUnavailableError) Is(target error) bool { return target == ErrEncoderUnavailable }

func (e *EncoderUnavailableError) Unwrap() error { return e.Err }
