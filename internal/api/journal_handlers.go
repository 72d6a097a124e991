package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
)

const detailJournalNotFound = "Journal entry not found"

func (h *APIHandler) CreateJournalHandler(w http.ResponseWriter, r *http.Request) {
	var req core.JournalInput
	if !decodeAndValidate(w, r, &req) {
		return
	}
	entry, err := h.journals.Create(r.Context(), currentUser(r).ID, req)
	if err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) ListJournalsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.journals.List(r.Context(), currentUser(r).ID, opts)
	if err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) GetJournalHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journals.Get(r.Context(), chi.URLParam(r, "entryID"), currentUser(r).ID)
	if err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) UpdateJournalHandler(w http.ResponseWriter, r *http.Request) {
	var req core.JournalPatch
	if !decodeAndValidate(w, r, &req) {
		return
	}
	entry, err := h.journals.Update(r.Context(), chi.URLParam(r, "entryID"), currentUser(r).ID, req)
	if err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) DeleteJournalHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.journals.Delete(r.Context(), chi.URLParam(r, "entryID"), currentUser(r).ID); err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) JournalAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.journals.Analyze(r.Context(), chi.URLParam(r, "entryID"), currentUser(r).ID)
	if err != nil {
		serviceError(w, r, err, detailJournalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
