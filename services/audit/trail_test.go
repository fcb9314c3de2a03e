package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
)

// memorySink collects appended records in memory
type memorySink struct {
	mu      sync.Mutex
	records []*models.AuditRecord
}

func (s *memorySink) Append(_ context.Context, record *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) Recent(_ context.Context, limit int) ([]*models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]*models.AuditRecord, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestTrailWritesRecords(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, trail.Start())

	for i := 0; i < 25; i++ {
		trail.Record(models.NewAuditRecord("corr", models.PhaseRequest))
	}

	require.NoError(t, trail.Stop(2*time.Second))
	assert.Equal(t, 25, sink.count())
}

func TestTrailLifecycle(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})

	t.Run("record before start is dropped", func(t *testing.T) {
		trail.Record(models.NewAuditRecord("early", models.PhaseRequest))
		assert.Equal(t, 0, sink.count())
	})

	t.Run("double start rejected", func(t *testing.T) {
		require.NoError(t, trail.Start())
		assert.Error(t, trail.Start())
	})

	t.Run("stop drains and further records are dropped", func(t *testing.T) {
		trail.Record(models.NewAuditRecord("one", models.PhaseRequest))
		require.NoError(t, trail.Stop(2*time.Second))
		assert.Equal(t, 1, sink.count())

		trail.Record(models.NewAuditRecord("late", models.PhaseRequest))
		assert.Equal(t, 1, sink.count())

		assert.Error(t, trail.Stop(time.Second))
	})
}

func TestTrailConcurrentProducers(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 4})
	require.NoError(t, trail.Start())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				trail.Record(models.NewAuditRecord("corr", models.PhaseResponse))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, trail.Stop(2*time.Second))
	assert.Equal(t, 200, sink.count())
}
