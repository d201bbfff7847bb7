package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
)

// ViolationLister reads persisted leak-guard audit records.
type ViolationLister interface {
	ListByChatbot(ctx context.Context, chatbotID string, limit int) ([]domain.PrivacyViolationReport, error)
}

type ViolationsHandler struct {
	repo ViolationLister
}

func NewViolationsHandler(repo ViolationLister) *ViolationsHandler {
	return &ViolationsHandler{repo: repo}
}

type ViolationResponse struct {
	ID            string `json:"id"`
	QueryID       string `json:"query_id"`
	SourceChunkID string `json:"source_chunk_id"`
	Action        string `json:"action"`
	CreatedAt     string `json:"created_at"`
}

// List handles GET /v1/chatbots/{chatbotID}/violations.
// The leaked fragment itself is never exposed over the API.
func (h *ViolationsHandler) List(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")
	if chatbotID == "" {
		api.Error(w, http.StatusBadRequest, "chatbot id is required")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	reports, err := h.repo.ListByChatbot(r.Context(), chatbotID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]ViolationResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, ViolationResponse{
			ID:            report.ID,
			QueryID:       report.QueryID,
			SourceChunkID: report.SourceChunkID,
			Action:        string(report.Action),
			CreatedAt:     report.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	api.Success(w, http.StatusOK, out)
}
