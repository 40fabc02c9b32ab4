package schema

import "time"

// CacheStatus represents the status of the normalized report cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the build history store.
type HistoryStatus struct {
	Backend         string           `json:"backend"`
	Connected       bool             `json:"connected"`
	TotalBuilds     int              `json:"total_builds"`
	TotalResults    int              `json:"total_results"`
	TotalReferences int              `json:"total_references"`
	LastBuildID     string           `json:"last_build_id"`
	LastBuildTime   time.Time        `json:"last_build_time"`
	OldestBuildTime time.Time        `json:"oldest_build_time"`
	TableSizes      map[string]int64 `json:"table_sizes"`
}
