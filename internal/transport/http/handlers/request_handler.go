package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/internal/transport/http/middleware"
)

type RequestHandler struct {
	requestService *service.RequestService
	log            *slog.Logger
}

func NewRequestHandler(requestService *service.RequestService, log *slog.Logger) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		log:            log.With(slog.String("handler", "requests")),
	}
}

type sendRequestInput struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
}

type respondInput struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (h *RequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input sendRequestInput
	if !decode(w, r, &input) {
		return
	}

	fr, err := h.requestService.SendRequest(r.Context(), middleware.GetUserID(r.Context()), input.ReceiverID)
	if err != nil {
		writeServiceError(w, h.log, "send request", err)
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

func (h *RequestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id", "request")
	if !ok {
		return
	}
	var input respondInput
	if !decode(w, r, &input) {
		return
	}

	chat, err := h.requestService.RespondToRequest(r.Context(), requestID, middleware.GetUserID(r.Context()), *input.Accept)
	if err != nil {
		writeServiceError(w, h.log, "respond to request", err)
		return
	}

	if chat == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Friend request rejected"})
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id", "request")
	if !ok {
		return
	}

	if err := h.requestService.CancelRequest(r.Context(), requestID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, h.log, "cancel request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListIncoming(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "list incoming requests", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *RequestHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListOutgoing(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "list outgoing requests", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// Friends lists the caller's friends, leaving out members of ?chat_id=.
func (h *RequestHandler) Friends(w http.ResponseWriter, r *http.Request) {
	var exclude *uuid.UUID
	if raw := r.URL.Query().Get("chat_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
			return
		}
		exclude = &id
	}

	friends, err := h.requestService.ListFriends(r.Context(), middleware.GetUserID(r.Context()), exclude)
	if err != nil {
		writeServiceError(w, h.log, "list friends", err)
		return
	}
	if friends == nil {
		friends = []domain.UserSummary{}
	}
	writeJSON(w, http.StatusOK, friends)
}

func (h *RequestHandler) Relationship(w http.ResponseWriter, r *http.Request) {
	otherID, ok := pathID(w, r, "userId", "user")
	if !ok {
		return
	}

	state, err := h.requestService.Relationship(r.Context(), middleware.GetUserID(r.Context()), otherID)
	if err != nil {
		writeServiceError(w, h.log, "get relationship", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": otherID, "state": state})
}
