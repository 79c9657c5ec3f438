package handlers

import (
	"encoding/json"
	"net/http"

	"memgraph/application/services"
	"memgraph/pkg/common"
	"memgraph/pkg/utils"

	"go.uber.org/zap"
)

// AdminHandler serves graph statistics, office links and maintenance
type AdminHandler struct {
	graph  *services.MemoryGraph
	logger *zap.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(graph *services.MemoryGraph, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{graph: graph, logger: logger}
}

// Stats handles GET /stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.graph.Stats(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, stats)
}

// TriggerMaintenance handles POST /maintenance
func (h *AdminHandler) TriggerMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.graph.TriggerMaintenance(r.Context())
	if err != nil {
		h.logger.Error("maintenance pass failed", zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("maintenance pass complete",
		zap.Int("expiredNodes", report.ExpiredNodes),
		zap.Int("expiredGrants", report.ExpiredGrants),
		zap.Int("rollups", report.Rollups),
		zap.Int("rollupTimeouts", report.RollupTimeouts),
		zap.Int("skippedLocked", report.SkippedLocked),
	)

	common.RespondJSON(w, http.StatusOK, report)
}

type linkOfficesRequest struct {
	OfficeA  string `json:"office_a" validate:"required"`
	OfficeB  string `json:"office_b" validate:"required"`
	Relation string `json:"relation" validate:"required"`
}

// LinkOffices handles POST /office-links
func (h *AdminHandler) LinkOffices(w http.ResponseWriter, r *http.Request) {
	var req linkOfficesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	id, err := h.graph.LinkOffices(r.Context(), req.OfficeA, req.OfficeB, req.Relation)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}
