package report

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	reportservice "github.com/agendalink/server/internal/service/report"
	"github.com/agendalink/server/pkg/utils"
)

// Handler serves the administrator report endpoint.
type Handler struct {
	reports *reportservice.Service
}

// New creates the report handler.
func New(reports *reportservice.Service) *Handler {
	return &Handler{reports: reports}
}

// RegisterRoutes mounts the report routes. The caller wraps them with the
// auth and admin middlewares.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reports", h.handleReports)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	built, err := h.reports.Build(r.Context())
	if err != nil {
		log.Printf("[report] build failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao gerar relatórios")
		return
	}
	utils.RespondJSON(w, http.StatusOK, built)
}
