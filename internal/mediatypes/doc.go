// Package mediatypes classifies source media files for the camfeed converter.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains the format classes, the fixed
// extension table and pure helpers with no I/O beyond reading the extension string.
//
// # Format Classes
//
//	mediatypes.Native           // .mjpeg, .y4m: the browser reads these directly
//	mediatypes.ConvertibleVideo // .mp4, .webm, .avi, .mov, .gif, ...
//	mediatypes.ConvertibleImage // .png, .jpg, .jpeg, .bmp, .webp
//	mediatypes.Unrecognized     // everything else
//
// # Classification
//
// Classify is case-insensitive and total:
//
//	switch mediatypes.Classify("/videos/clip.MP4") {
//	case mediatypes.Native:
//	    // use as-is
//	case mediatypes.ConvertibleVideo, mediatypes.ConvertibleImage:
//	    // hand to the converter
//	default:
//	    // reject
//	}
//
// # Output Formats
//
// OutputFormat names the native container the converter writes (MJPEG or Y4M) and
// knows its file extension and the encoder muxer/pixel format that produce it.
package mediatypes
