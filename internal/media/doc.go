// Package media prepares still images before they are handed to the encoder.
//
// PrepareStill decodes an image with github.com/disintegration/imaging, applies the
// EXIF orientation tag, downscales anything beyond MaxImageDimension or
// MaxImagePixels and writes a PNG staging file. The converter feeds that staging file
// to the encoder instead of the original and removes it afterwards. Decoding supports
// JPEG, PNG, GIF, BMP and WebP.
package media
