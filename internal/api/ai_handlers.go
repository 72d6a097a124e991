package api

import (
	"net/http"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
)

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.chat.Reply(r.Context(), req))
}

type sentimentRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *APIHandler) SentimentHandler(w http.ResponseWriter, r *http.Request) {
	var req sentimentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.analyzer.Analyze(r.Context(), req.Text)
	if err != nil {
		serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) BreathingExercisesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ai.BreathingExercises())
}
