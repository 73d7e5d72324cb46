package indexer

import "time"

type Settings struct {
	// MetadataDir holds the persistent ingestion queue.
	MetadataDir     string        `json:"metadata_dir"`
	Parallelism     int           `json:"parallelism"`
	MaxFileSizeMB   int           `json:"max_file_size_mb"`
	ExcludePatterns []string      `json:"exclude_patterns"`
	PollInterval    time.Duration `json:"poll_interval"`
}
