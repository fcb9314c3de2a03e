package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/repositories"
	"github.com/complycore/compliance-api/utils"
)

// PolicySummary is a compliance policy as exposed on the read path
type PolicySummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Framework  string `json:"framework"`
	Status     string `json:"status"`
	ReviewDate string `json:"review_date"`
}

// compliancePolicies is the static demo catalogue served while the policy
// domain service lives in its own component.
var compliancePolicies = []PolicySummary{
	{ID: "pol-001", Title: "Access Control Policy", Framework: "ISO27001", Status: "active", ReviewDate: "2026-01-15"},
	{ID: "pol-002", Title: "Data Retention Policy", Framework: "GDPR", Status: "active", ReviewDate: "2026-03-01"},
	{ID: "pol-003", Title: "Vendor Risk Policy", Framework: "SOC2", Status: "draft", ReviewDate: "2026-02-10"},
}

// ResourceHandler serves the protected resource routes that exercise the
// authorization guard.
type ResourceHandler struct {
	sink   repositories.AuditSink
	logger *zap.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(sink repositories.AuditSink, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		sink:   sink,
		logger: logger,
	}
}

// HandleListPolicies handles GET /api/v1/policies
func (h *ResourceHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, compliancePolicies)
}

// HandleListAuditRecords handles GET /api/v1/audit/records
func (h *ResourceHandler) HandleListAuditRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := h.sink.Recent(r.Context(), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, records)
}
