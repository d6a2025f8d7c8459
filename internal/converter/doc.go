/*
Package converter turns arbitrary source media into files a browser can replay
as a fake camera feed.

Sources are classified by extension. Native feed files (.mjpeg, .y4m) are
returned unchanged; convertible videos and images are run through an external
encoder (ffmpeg) and the result is stored in a cache directory keyed by a
content fingerprint, so a later request for the same content is served without
re-encoding.

# Cache layout

Entries live in <video dir>/.cache and are named <fingerprint><ext>, where the
fingerprint is the hex SHA-256 of the first 64 KiB of the source followed by
its decimal length. The encoder always writes to <entry>.tmp first and the file
is renamed into place only after a successful exit, so an entry that exists is
always complete.

# Errors

Failures match one of ErrSourceNotFound, ErrUnsupportedFormat,
ErrConversionFailed or ErrEncoderUnavailable with errors.Is. The concrete error
types carry the offending path, the supported extensions or the encoder's
error stream.

# Usage

	conv, err := converter.New(converter.DefaultConfig("/srv/videos"))
	if err != nil {
		return err
	}
	if err := conv.Initialize(); err != nil {
		return err
	}
	feed, err := conv.Convert(ctx, "/srv/videos/clip.mp4")
*/
package converter
