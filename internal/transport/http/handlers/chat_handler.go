package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/internal/transport/http/middleware"
)

type ChatHandler struct {
	chatService *service.ChatService
	log         *slog.Logger
}

func NewChatHandler(chatService *service.ChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log.With(slog.String("handler", "chats")),
	}
}

type createGroupInput struct {
	Name    string      `json:"name" validate:"required,max=100"`
	Members []uuid.UUID `json:"members" validate:"required,min=2,dive,required"`
}

type renameGroupInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type addMembersInput struct {
	Members []uuid.UUID `json:"members" validate:"required,min=1,dive,required"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input createGroupInput
	if !decode(w, r, &input) {
		return
	}

	chat, err := h.chatService.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), input.Name, input.Members)
	if err != nil {
		writeServiceError(w, h.log, "create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.ListChats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) Groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.chatService.ListGroups(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}

	details, err := h.chatService.GetChat(r.Context(), chatID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "get chat", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *ChatHandler) Rename(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}
	var input renameGroupInput
	if !decode(w, r, &input) {
		return
	}

	chat, err := h.chatService.RenameGroup(r.Context(), chatID, middleware.GetUserID(r.Context()), input.Name)
	if err != nil {
		writeServiceError(w, h.log, "rename group", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}

	if err := h.chatService.DeleteChat(r.Context(), chatID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, h.log, "delete chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}
	var input addMembersInput
	if !decode(w, r, &input) {
		return
	}

	chat, err := h.chatService.AddMembers(r.Context(), chatID, middleware.GetUserID(r.Context()), input.Members)
	if err != nil {
		writeServiceError(w, h.log, "add members", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	chat, err := h.chatService.RemoveMember(r.Context(), chatID, middleware.GetUserID(r.Context()), targetID)
	if err != nil {
		writeServiceError(w, h.log, "remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id", "chat")
	if !ok {
		return
	}

	chat, err := h.chatService.LeaveGroup(r.Context(), chatID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "leave group", err)
		return
	}
	if chat == nil {
		// The caller was the last member and the group is gone.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}
