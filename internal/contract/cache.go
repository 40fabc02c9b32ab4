package contract

import "github.com/huangsam/covdelta/schema"

// StoreManager defines the interface for managing the persistence stores.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetReportCache() ReportCache
	GetHistoryStore() HistoryStore
}

// ReportCache defines the interface for normalized report storage.
// Entries are keyed by adapter name and a hash of the raw report content.
type ReportCache interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}
