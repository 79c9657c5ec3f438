package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"memgraph/application/services"
	"memgraph/domain/core/valueobjects"
	"memgraph/pkg/auth"
	"memgraph/pkg/common"
	"memgraph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GrantHandler serves the access grant endpoints
type GrantHandler struct {
	graph  *services.MemoryGraph
	logger *zap.Logger
}

// NewGrantHandler creates a grant handler
func NewGrantHandler(graph *services.MemoryGraph, logger *zap.Logger) *GrantHandler {
	return &GrantHandler{graph: graph, logger: logger}
}

type createGrantRequest struct {
	NodeID         string `json:"node_id" validate:"required"`
	ReceivingOwner string `json:"receiving_owner" validate:"required"`
	TTLSeconds     int64  `json:"ttl_seconds" validate:"gt=0"`
	CanModify      bool   `json:"can_modify"`
}

// CreateGrant handles POST /grants. The authenticated office is the
// granting owner.
func (h *GrantHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req createGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	nodeID, err := valueobjects.NewNodeIDFromString(req.NodeID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	grantID, err := h.graph.GrantAccess(
		r.Context(),
		nodeID,
		office.OfficeID,
		req.ReceivingOwner,
		time.Duration(req.TTLSeconds)*time.Second,
		req.CanModify,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"grant_id": grantID.String()})
}

// RevokeGrant handles DELETE /grants/{grantID}
func (h *GrantHandler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	grantID, err := valueobjects.NewGrantIDFromString(chi.URLParam(r, "grantID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.graph.RevokeAccess(r.Context(), grantID, office.OfficeID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
