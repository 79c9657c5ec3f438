package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"memgraph/application/services"
	"memgraph/domain/core/entities"
	"memgraph/domain/core/valueobjects"
	"memgraph/pkg/auth"
	"memgraph/pkg/common"
	"memgraph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MemoryHandler serves the memory node endpoints
type MemoryHandler struct {
	graph  *services.MemoryGraph
	logger *zap.Logger
}

// NewMemoryHandler creates a memory handler
func NewMemoryHandler(graph *services.MemoryGraph, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{graph: graph, logger: logger}
}

type createMemoryRequest struct {
	Content    string   `json:"content" validate:"required"`
	Consent    string   `json:"consent" validate:"required"`
	TTLSeconds int64    `json:"ttl_seconds" validate:"gte=0"`
	Importance *float64 `json:"importance,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type memoryResponse struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	Level       string   `json:"level"`
	Content     string   `json:"content"`
	Consent     string   `json:"consent"`
	Tags        []string `json:"tags,omitempty"`
	Importance  float64  `json:"importance"`
	CreatedAt   string   `json:"created_at"`
	ExpiresAt   string   `json:"expires_at"`
	AccessCount int64    `json:"access_count"`
	ChildIDs    []string `json:"child_ids,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
}

func toMemoryResponse(node *entities.MemoryNode) memoryResponse {
	children := make([]string, len(node.Children()))
	for i, c := range node.Children() {
		children[i] = c.String()
	}

	parent := ""
	if parentID, ok := node.ParentID(); ok {
		parent = parentID.String()
	}

	return memoryResponse{
		ID:          node.ID().String(),
		Owner:       node.Owner(),
		Level:       node.Level().String(),
		Content:     node.Content().Text(),
		Consent:     node.Consent().String(),
		Tags:        node.GetTags(),
		Importance:  node.Importance().Value(),
		CreatedAt:   utils.FormatRFC3339(node.CreatedAt()),
		ExpiresAt:   utils.FormatRFC3339(node.ExpiresAt()),
		AccessCount: node.AccessCount(),
		ChildIDs:    children,
		ParentID:    parent,
	}
}

// CreateMemory handles POST /memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	consent, err := valueobjects.ParseConsentLevel(req.Consent)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	id, err := h.graph.CreateMemory(r.Context(), services.CreateMemoryRequest{
		Owner:      office.OfficeID,
		Content:    req.Content,
		Consent:    consent,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
		Importance: req.Importance,
		Tags:       req.Tags,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// GetMemory handles GET /memories/{nodeID}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	id, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	node, err := h.graph.ReadMemory(r.Context(), id, office.OfficeID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toMemoryResponse(node))
}

type searchResponse struct {
	Node  memoryResponse `json:"node"`
	Score float64        `json:"score"`
}

// SearchMemories handles GET /memories/search
func (h *MemoryHandler) SearchMemories(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	minScore, _ := strconv.ParseFloat(r.URL.Query().Get("min_score"), 64)
	tags := r.URL.Query()["tag"]

	results, err := h.graph.SearchMemories(r.Context(), services.SearchRequest{
		Query:     query,
		Requester: office.OfficeID,
		Limit:     limit,
		MinScore:  minScore,
		Tags:      tags,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	out := make([]searchResponse, len(results))
	for i, res := range results {
		out[i] = searchResponse{Node: toMemoryResponse(res.Node), Score: res.Score}
	}

	common.RespondJSON(w, http.StatusOK, out)
}

type updateConsentRequest struct {
	Consent string `json:"consent" validate:"required"`
}

// UpdateConsent handles PUT /memories/{nodeID}/consent
func (h *MemoryHandler) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	id, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req updateConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	consent, err := valueobjects.ParseConsentLevel(req.Consent)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.graph.UpdateConsent(r.Context(), id, office.OfficeID, consent); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type adjustImportanceRequest struct {
	Importance float64 `json:"importance"`
}

// AdjustImportance handles PUT /memories/{nodeID}/importance
func (h *MemoryHandler) AdjustImportance(w http.ResponseWriter, r *http.Request) {
	office, err := auth.GetOfficeFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	id, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req adjustImportanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	if err := h.graph.AdjustImportance(r.Context(), id, office.OfficeID, req.Importance); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
