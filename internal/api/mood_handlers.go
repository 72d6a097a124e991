package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
)

const detailMoodNotFound = "Mood entry not found"

func (h *APIHandler) CreateMoodHandler(w http.ResponseWriter, r *http.Request) {
	var req core.MoodInput
	if !decodeAndValidate(w, r, &req) {
		return
	}
	m, err := h.moods.Create(r.Context(), currentUser(r).ID, req)
	if err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *APIHandler) ListMoodsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	moods, err := h.moods.List(r.Context(), currentUser(r).ID, opts)
	if err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, moods)
}

func (h *APIHandler) GetMoodHandler(w http.ResponseWriter, r *http.Request) {
	m, err := h.moods.Get(r.Context(), chi.URLParam(r, "moodID"), currentUser(r).ID)
	if err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *APIHandler) UpdateMoodHandler(w http.ResponseWriter, r *http.Request) {
	var req core.MoodPatch
	if !decodeAndValidate(w, r, &req) {
		return
	}
	m, err := h.moods.Update(r.Context(), chi.URLParam(r, "moodID"), currentUser(r).ID, req)
	if err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *APIHandler) DeleteMoodHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.moods.Delete(r.Context(), chi.URLParam(r, "moodID"), currentUser(r).ID); err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AggregateMoodsHandler rejects an unknown period before any query runs.
func (h *APIHandler) AggregateMoodsHandler(w http.ResponseWriter, r *http.Request) {
	start, err := dateParam(r, "start_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := dateParam(r, "end_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.moods.Aggregate(r.Context(), currentUser(r).ID, chi.URLParam(r, "period"), start, end)
	if err != nil {
		serviceError(w, r, err, detailMoodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
