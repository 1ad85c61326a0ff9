package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dtmai/genai-gateway/internal/billing"
)

const (
	defaultBufferSize = 256
	writeTimeout      = 5 * time.Second
)

// Recorder persists usage logs off the request path. Records are buffered
// on a channel and written by a single background goroutine so a slow
// database never stalls completions.
type Recorder struct {
	store billing.Store
	jobs  chan *billing.UsageLog

	closeOnce sync.Once
	done      chan struct{}
}

func NewRecorder(store billing.Store) *Recorder {
	return &Recorder{
		store: store,
		jobs:  make(chan *billing.UsageLog, defaultBufferSize),
		done:  make(chan struct{}),
	}
}

// Start runs the write loop until ctx is cancelled. Remaining buffered
// records are drained before returning.
func (r *Recorder) Start(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case job, ok := <-r.jobs:
			if !ok {
				return
			}
			r.write(job)
		case <-ctx.Done():
			for {
				select {
				case job, ok := <-r.jobs:
					if !ok {
						return
					}
					r.write(job)
				default:
					return
				}
			}
		}
	}
}

// Record enqueues a usage log without blocking. If the buffer is full the
// record is dropped and logged; billing lag must not back-pressure requests.
func (r *Recorder) Record(usage *billing.UsageLog) {
	select {
	case r.jobs <- usage:
	default:
		log.Printf("worker: usage buffer full, dropping record for tenant %s", usage.TenantID)
	}
}

// Close stops accepting records and waits for the write loop to finish.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.jobs) })
	<-r.done
}

func (r *Recorder) write(usage *billing.UsageLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.LogUsage(ctx, usage); err != nil {
		log.Printf("worker: failed to log usage for tenant %s: %v", usage.TenantID, err)
	}
}
