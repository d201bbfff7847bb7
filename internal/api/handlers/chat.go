package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
)

// AnswerService runs the answer pipeline for one query.
type AnswerService interface {
	Answer(ctx context.Context, query *domain.Query) (*domain.Response, error)
}

type ChatHandler struct {
	svc AnswerService
}

func NewChatHandler(svc AnswerService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	ChatbotID      string `json:"chatbot_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
}

type ChatResponse struct {
	Message        string                  `json:"message"`
	ConversationID string                  `json:"conversation_id"`
	MessageID      string                  `json:"message_id"`
	Citations      []string                `json:"citations"`
	CostEstimate   float64                 `json:"cost_estimate"`
	Latency        domain.LatencyBreakdown `json:"latency"`
}

// Answer handles POST /v1/chat.
func (h *ChatHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := &domain.Query{
		ChatbotID:      req.ChatbotID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
		Language:       req.Language,
	}

	resp, err := h.svc.Answer(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Message:        resp.Message,
		ConversationID: resp.ConversationID,
		MessageID:      resp.MessageID,
		Citations:      resp.Citations,
		CostEstimate:   resp.CostEstimate,
		Latency:        resp.Latency,
	})
}
