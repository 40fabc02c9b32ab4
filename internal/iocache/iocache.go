// Package iocache persists build history and caches normalized coverage reports.
package iocache

import (
	"sync"

	"github.com/huangsam/covdelta/internal/contract"
)

// StoreManager holds the report cache and the history store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	reportCache  contract.ReportCache
	history      contract.HistoryStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager wraps already opened stores. Either may be nil.
func NewStoreManager(cache contract.ReportCache, history contract.HistoryStore) *StoreManager {
	return &StoreManager{reportCache: cache, history: history}
}

// GetReportCache returns the report cache.
func (mgr *StoreManager) GetReportCache() contract.ReportCache {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.reportCache
}

// GetHistoryStore returns the history store.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
