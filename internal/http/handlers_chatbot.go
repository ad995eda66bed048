package http

import (
	"net/http"
	"strings"

	"budgetbuddy/internal/chatbot"
)

func (s *Server) handleChatbotQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string   `json:"message"`
		History []string `json:"history"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		respondError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]string{
		"reply": chatbot.Reply(req.Message, req.History),
	})
}
