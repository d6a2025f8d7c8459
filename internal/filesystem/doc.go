/*
Package filesystem provides filesystem reads that survive NFS stale file handle errors.

Video directories used by shared browser-test grids are frequently NFS or SMB mounts.
StatWithRetry and OpenWithRetry wrap os.Stat and os.Open and retry only on ESTALE,
with exponential backoff capped at MaxBackoff:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

All other errors, including os.ErrNotExist, are returned on the first attempt.

Retry activity is reported through an Observer (see metrics.NewFilesystemObserver),
labeled by a volume name resolved from the path with VolumeResolver.
*/
package filesystem
