package iocache

import (
	"context"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetReportCache implements the StoreManager interface.
func (m *MockStoreManager) GetReportCache() contract.ReportCache {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ReportCache)
	return store
}

// GetHistoryStore implements the StoreManager interface.
func (m *MockStoreManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockReportCache is a mock implementation of ReportCache for testing.
type MockReportCache struct {
	mock.Mock
}

var _ contract.ReportCache = &MockReportCache{} // Compile-time check

// Get implements the ReportCache interface.
func (m *MockReportCache) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the ReportCache interface.
func (m *MockReportCache) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// GetStatus implements the ReportCache interface.
func (m *MockReportCache) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the ReportCache interface.
func (m *MockReportCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// GetBuild implements the HistoryStore interface.
func (m *MockHistoryStore) GetBuild(ctx context.Context, id string) (schema.BuildRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.BuildRecord), args.Error(1)
}

// ListBuilds implements the HistoryStore interface.
func (m *MockHistoryStore) ListBuilds(ctx context.Context, job string) ([]schema.BuildRecord, error) {
	args := m.Called(ctx, job)
	builds, _ := args.Get(0).([]schema.BuildRecord)
	return builds, args.Error(1)
}

// HasResult implements the HistoryStore interface.
func (m *MockHistoryStore) HasResult(ctx context.Context, buildID string) (bool, error) {
	args := m.Called(ctx, buildID)
	return args.Bool(0), args.Error(1)
}

// GetReference implements the HistoryStore interface.
func (m *MockHistoryStore) GetReference(ctx context.Context, buildID string) (*schema.ReferenceBuild, error) {
	args := m.Called(ctx, buildID)
	ref, _ := args.Get(0).(*schema.ReferenceBuild)
	return ref, args.Error(1)
}

// AttachReference implements the HistoryStore interface.
func (m *MockHistoryStore) AttachReference(ctx context.Context, ref schema.ReferenceBuild) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// CreateBuild implements the HistoryStore interface.
func (m *MockHistoryStore) CreateBuild(ctx context.Context, build schema.BuildRecord) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

// FinishBuild implements the HistoryStore interface.
func (m *MockHistoryStore) FinishBuild(ctx context.Context, id string, outcome schema.Outcome, finishedAt time.Time) error {
	args := m.Called(ctx, id, outcome, finishedAt)
	return args.Error(0)
}

// SaveResult implements the HistoryStore interface.
func (m *MockHistoryStore) SaveResult(ctx context.Context, result *schema.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// GetResult implements the HistoryStore interface.
func (m *MockHistoryStore) GetResult(ctx context.Context, buildID string) (*schema.Result, error) {
	args := m.Called(ctx, buildID)
	result, _ := args.Get(0).(*schema.Result)
	return result, args.Error(1)
}

// ListSummaries implements the HistoryStore interface.
func (m *MockHistoryStore) ListSummaries(ctx context.Context) ([]schema.ElementSummaryRecord, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]schema.ElementSummaryRecord)
	return rows, args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
