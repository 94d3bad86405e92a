package handler

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/middleware"
	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/service"
)

// LeadHandler captures contact requests and lists them for agents.
type LeadHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

func NewLeadHandler(chat *service.ChatService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{chat: chat, logger: logger}
}

type createLeadRequest struct {
	SessionID        string `json:"session_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PropertyInterest string `json:"property_interest"`
	Message          string `json:"message"`
	Source           string `json:"source"`
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead := &models.Lead{
		SessionID:        req.SessionID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PropertyInterest: req.PropertyInterest,
		Message:          req.Message,
		Source:           req.Source,
	}
	err := h.chat.SaveLead(r.Context(), lead)
	if errors.Is(err, service.ErrInvalidLead) {
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrInvalidLead.Error()+": "))
		return
	}
	if err != nil {
		h.logger.Error("failed to save lead", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save lead")
		return
	}

	writeJSON(w, http.StatusCreated, lead)
}

// List handles GET /api/v1/admin/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.chat.Leads(r.Context(), queryLimit(r, 50, 500))
	if err != nil {
		h.logger.Error("failed to list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	h.logger.Info("leads listed",
		zap.String("agent", middleware.Agent(r.Context())),
		zap.Int("count", len(leads)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
		"total": len(leads),
	})
}
