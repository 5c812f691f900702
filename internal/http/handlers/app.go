package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/publish"
)

// GenerationService is the slice of the orchestrator the handlers invoke.
type GenerationService interface {
	RunFullGeneration(ctx context.Context, photoID string) (generation.Summary, error)
	RunSingleDesign(ctx context.Context, photoID string, designID int) (*domain.DesignResult, error)
}

// App bundles handler dependencies.
type App struct {
	Photos     domain.PhotoRepository
	Results    domain.ResultRepository
	Generation GenerationService
	Publisher  publish.Publisher
	Logger     infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// fail maps domain errors to HTTP status codes.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSourceMissing):
		a.jsonError(w, http.StatusUnprocessableEntity, "photo has no source image")
	case errors.Is(err, domain.ErrEmptyCatalog):
		a.jsonError(w, http.StatusConflict, "design catalog is empty")
	default:
		a.Logger.Error().Err(err).Msg("handlers: request failed")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
