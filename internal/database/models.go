package database

import "time"

// CacheEntry is one manifest row.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Extension   string    `json:"extension"`
	OutputPath  string    `json:"outputPath"`
	SourcePath  string    `json:"sourcePath"`
	FormatClass string    `json:"formatClass"`
	SizeBytes   int64     `json:"sizeBytes"`
	EncodeMs    int64     `json:"encodeMs"`
	Hits        int64     `json:"hits"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// Stats summarizes the manifest.
type Stats struct {
	Entries      int   `json:"entries"`
	SizeBytes    int64 `json:"sizeBytes"`
	Hits         int64 `json:"hits"`
	VideoEntries int   `json:"videoEntries"`
	ImageEntries int   `json:"imageEntries"`
}
