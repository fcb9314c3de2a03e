package handlers

import (
	"net/http"

	"github.com/complycore/compliance-api/utils"
)

// HealthCheck handles GET /healthz
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
