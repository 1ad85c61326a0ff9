package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dtmai/genai-gateway/internal/billing"
)

type fakeStore struct {
	mu   sync.Mutex
	logs []*billing.UsageLog
	err  error
}

func (f *fakeStore) LogUsage(ctx context.Context, log *billing.UsageLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return f.err
}

func (f *fakeStore) GetUsageByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*billing.UsageLog, error) {
	return nil, nil
}

func (f *fakeStore) GetTotalCostByTenant(ctx context.Context, tenantID string, from, to time.Time) (float64, error) {
	return 0, nil
}

func (f *fakeStore) GetCostByModel(ctx context.Context, tenantID string, from, to time.Time) ([]*billing.CostSummary, error) {
	return nil, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

func TestRecorder_WritesBufferedRecords(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store)
	go r.Start(context.Background())

	for i := 0; i < 5; i++ {
		r.Record(&billing.UsageLog{TenantID: "tenant-1", Model: "gpt-4.1"})
	}
	r.Close()

	if got := store.count(); got != 5 {
		t.Errorf("Expected 5 usage logs written, got %d", got)
	}
}

func TestRecorder_StoreErrorDoesNotStopLoop(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	r := NewRecorder(store)
	go r.Start(context.Background())

	for i := 0; i < 3; i++ {
		r.Record(&billing.UsageLog{TenantID: "tenant-1"})
	}
	r.Close()

	if got := store.count(); got != 3 {
		t.Errorf("Expected all 3 writes attempted despite errors, got %d", got)
	}
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store)
	// No Start yet: the buffer fills and the overflow record must be
	// dropped without blocking.
	for i := 0; i < defaultBufferSize+1; i++ {
		r.Record(&billing.UsageLog{TenantID: "tenant-1"})
	}

	go r.Start(context.Background())
	r.Close()

	if got := store.count(); got != defaultBufferSize {
		t.Errorf("Expected %d records after drop, got %d", defaultBufferSize, got)
	}
}
