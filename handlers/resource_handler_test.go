package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

// staticSink serves a fixed set of records
type staticSink struct {
	records  []*models.AuditRecord
	gotLimit int
}

func (s *staticSink) Append(context.Context, *models.AuditRecord) error { return nil }

func (s *staticSink) Recent(_ context.Context, limit int) ([]*models.AuditRecord, error) {
	s.gotLimit = limit
	if limit > len(s.records) {
		limit = len(s.records)
	}
	return s.records[:limit], nil
}

// failingSink fails every read
type failingSink struct{}

func (failingSink) Append(context.Context, *models.AuditRecord) error { return nil }

func (failingSink) Recent(context.Context, int) ([]*models.AuditRecord, error) {
	return nil, services.WrapInternal("audit query failed", errors.New("pq: connection refused"))
}

func TestHandleListPolicies(t *testing.T) {
	h := NewResourceHandler(&staticSink{}, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleListPolicies(w, httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Access Control Policy")
}

func TestHandleListAuditRecords(t *testing.T) {
	t.Run("serves recent records with the default limit", func(t *testing.T) {
		sink := &staticSink{records: []*models.AuditRecord{
			models.NewAuditRecord("corr-1", models.PhaseRequest),
			models.NewAuditRecord("corr-2", models.PhaseResponse),
		}}
		h := NewResourceHandler(sink, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleListAuditRecords(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/records", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 50, sink.gotLimit)
		assert.Contains(t, w.Body.String(), "corr-1")
	})

	t.Run("limit query param is clamped", func(t *testing.T) {
		sink := &staticSink{}
		h := NewResourceHandler(sink, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleListAuditRecords(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/records?limit=9999", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 50, sink.gotLimit)
	})

	t.Run("sink failure is a 500 logged exactly once", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		h := NewResourceHandler(failingSink{}, zap.New(core))

		w := httptest.NewRecorder()
		h.HandleListAuditRecords(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/records", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.Equal(t, 1, logs.Len())
	})
}
