package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/middleware"
	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/service"
	"github.com/xaenox/terrenos-bot/internal/storage"
)

// ChatHandler handles session and message endpoints.
type ChatHandler struct {
	chat         *service.ChatService
	historyLimit int
	logger       *zap.Logger
}

func NewChatHandler(chat *service.ChatService, historyLimit int, logger *zap.Logger) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &ChatHandler{
		chat:         chat,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

type createSessionRequest struct {
	Channel string `json:"channel"`
}

type createSessionResponse struct {
	Session *models.Session `json:"session"`
	Welcome *models.Turn    `json:"welcome"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	SessionID string        `json:"session_id"`
	Reply     *models.Reply `json:"reply"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []*models.Turn `json:"turns"`
}

// CreateSession handles POST /api/v1/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}
	if err := middleware.ValidateChannel(req.Channel); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, welcome, err := h.chat.StartSession(r.Context(), req.Channel, "")
	if err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{Session: session, Welcome: welcome})
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.chat.Send(r.Context(), sessionID, req.Text)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to send message",
			zap.String("session_id", sessionID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{SessionID: sessionID, Reply: reply})
}

// History handles GET /api/v1/sessions/{id}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, err := h.chat.History(r.Context(), sessionID, queryLimit(r, h.historyLimit, 200))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get history", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Turns: turns})
}
