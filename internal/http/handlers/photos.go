package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
)

const maxUploadBytes = 20 << 20

// UploadPhoto accepts a customer's source photo, publishes it and creates
// the photo record. Full generation is kicked off in the background; the
// client polls the results endpoint. Note this path, the admin path and the
// sweep can all drive the same photo concurrently; the per-pair upsert and
// the completion gate keep that safe.
func (a *App) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	customerID := strings.TrimSpace(r.FormValue("customer_id"))
	if customerID == "" {
		a.jsonError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, "read upload failed")
		return
	}
	if len(data) == 0 {
		a.jsonError(w, http.StatusBadRequest, "empty upload")
		return
	}

	mime := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	photoID := uuid.NewString()
	obj, err := a.Publisher.Publish(r.Context(), sourceKey(photoID, mime), mime, data)
	if err != nil {
		a.fail(w, err)
		return
	}

	photo := &domain.Photo{
		ID:         photoID,
		CustomerID: customerID,
		SourceKey:  obj.Key,
		SourceURL:  obj.URL,
		Status:     domain.PhotoStatusPending,
	}
	if err := a.Photos.Create(r.Context(), photo); err != nil {
		a.fail(w, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := a.Generation.RunFullGeneration(ctx, photoID); err != nil {
			a.Logger.Error().Err(err).
				Str("photo_id", photoID).
				Msg("handlers: background generation failed")
		}
	}()

	a.json(w, http.StatusAccepted, map[string]string{
		"photo_id":   photoID,
		"source_url": obj.URL,
		"status":     string(domain.PhotoStatusPending),
	})
}

// ListResults returns the photo's current per-design outcomes.
func (a *App) ListResults(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")
	photo, err := a.Photos.GetByID(r.Context(), photoID)
	if err != nil {
		a.fail(w, err)
		return
	}
	results, err := a.Results.ListByPhoto(r.Context(), photoID)
	if err != nil {
		a.fail(w, err)
		return
	}

	type resultView struct {
		DesignID    int    `json:"design_id"`
		Status      string `json:"status"`
		ResultURL   string `json:"result_url,omitempty"`
		FailureKind string `json:"failure_kind,omitempty"`
	}
	views := make([]resultView, 0, len(results))
	for _, result := range results {
		views = append(views, resultView{
			DesignID:    result.DesignID,
			Status:      string(result.Status),
			ResultURL:   result.ResultURL,
			FailureKind: string(result.FailureKind),
		})
	}

	a.json(w, http.StatusOK, map[string]any{
		"photo_id": photoID,
		"status":   string(photo.Status),
		"results":  views,
	})
}

// SetFavorite records the customer's chosen design.
func (a *App) SetFavorite(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")
	var body struct {
		DesignID int `json:"design_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DesignID <= 0 {
		a.jsonError(w, http.StatusBadRequest, "design_id is required")
		return
	}
	if err := a.Photos.SetFavorite(r.Context(), photoID, body.DesignID); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"photo_id":  photoID,
		"design_id": body.DesignID,
	})
}

func sourceKey(photoID, mime string) string {
	ext := ".jpg"
	if strings.Contains(mime, "png") {
		ext = ".png"
	}
	return fmt.Sprintf("photos/%s/source%s", photoID, ext)
}
