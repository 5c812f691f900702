package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
)

// GeneratePhoto runs the full generation loop synchronously. Admin and test
// path; the upload path runs the same loop in the background.
func (a *App) GeneratePhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")
	summary, err := a.Generation.RunFullGeneration(r.Context(), photoID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}

// GenerateDesign retries a single design for a photo: one generate/publish/
// upsert cycle, no round loop.
func (a *App) GenerateDesign(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")
	designID, err := strconv.Atoi(chi.URLParam(r, "designID"))
	if err != nil || designID <= 0 {
		a.jsonError(w, http.StatusBadRequest, "invalid design id")
		return
	}

	result, err := a.Generation.RunSingleDesign(r.Context(), photoID, designID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"photo_id":     result.PhotoID,
		"design_id":    result.DesignID,
		"status":       string(result.Status),
		"result_url":   result.ResultURL,
		"failure_kind": string(result.FailureKind),
	})
}

// ListFailing surfaces results stuck in fail status for operators.
func (a *App) ListFailing(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	failing, err := a.Results.ListFailing(r.Context(), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	if failing == nil {
		failing = []domain.FailingResult{}
	}
	a.json(w, http.StatusOK, map[string]any{"failing": failing})
}
