// Package audit writes request and authentication records to the audit sink
// asynchronously, so the request path never blocks on sink I/O.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/repositories"
)

// Config holds configuration for the Trail
type Config struct {
	BufferSize  int // size of the record buffer channel
	WorkerCount int // number of concurrent writers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 4,
	}
}

// Trail is the asynchronous audit writer. Records are enqueued without
// blocking; a full buffer drops the record with a warning rather than
// stalling the request.
type Trail struct {
	sink       repositories.AuditSink
	logger     *zap.Logger
	records    chan *models.AuditRecord
	workers    int
	bufferSize int
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
	closed     bool
}

// NewTrail creates a new Trail
func NewTrail(sink repositories.AuditSink, logger *zap.Logger, cfg Config) *Trail {
	if cfg.BufferSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Trail{
		sink:       sink,
		logger:     logger,
		records:    make(chan *models.AuditRecord, cfg.BufferSize),
		workers:    cfg.WorkerCount,
		bufferSize: cfg.BufferSize,
	}
}

// Start starts the background writers
func (t *Trail) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("audit trail already started")
	}

	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go t.worker(i)
	}
	t.started = true

	t.logger.Info("started audit trail",
		zap.Int("worker_count", t.workers),
		zap.Int("buffer_size", t.bufferSize))
	return nil
}

// Stop drains pending records and stops the writers. Returns an error when
// the drain does not finish within the timeout.
func (t *Trail) Stop(timeout time.Duration) error {
	t.mu.Lock()
	if !t.started || t.closed {
		t.mu.Unlock()
		return fmt.Errorf("audit trail not running")
	}
	t.closed = true
	t.mu.Unlock()

	t.logger.Info("stopping audit trail", zap.Int("pending_records", len(t.records)))
	close(t.records)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("audit trail stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit trail stop timeout after %v", timeout)
	}
}

// Record enqueues an audit record without blocking. On a full buffer the
// record is dropped and a warning logged.
func (t *Trail) Record(record *models.AuditRecord) {
	t.mu.Lock()
	if !t.started || t.closed {
		t.mu.Unlock()
		t.logger.Warn("audit trail not running, dropping record",
			zap.String("correlation_id", record.CorrelationID))
		return
	}
	t.mu.Unlock()

	select {
	case t.records <- record:
	default:
		t.logger.Warn("audit buffer full, dropping record",
			zap.String("correlation_id", record.CorrelationID),
			zap.String("path", record.Path))
	}
}

func (t *Trail) worker(id int) {
	defer t.wg.Done()

	for record := range t.records {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.sink.Append(ctx, record); err != nil {
			t.logger.Error("failed to append audit record",
				zap.Int("worker", id),
				zap.String("correlation_id", record.CorrelationID),
				zap.Error(err))
		}
		cancel()
	}
}
