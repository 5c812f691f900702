package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
	"github.com/place5-inc/pinkroom-api-sub000/internal/http/handlers"
	"github.com/place5-inc/pinkroom-api-sub000/internal/http/httpapi"
	"github.com/place5-inc/pinkroom-api-sub000/internal/publish"
)

type stubGeneration struct {
	fullCalls   int
	singleCalls int
	fullErr     error
	summary     generation.Summary
	result      *domain.DesignResult
	singleErr   error
}

func (s *stubGeneration) RunFullGeneration(ctx context.Context, photoID string) (generation.Summary, error) {
	s.fullCalls++
	if s.fullErr != nil {
		return generation.Summary{}, s.fullErr
	}
	summary := s.summary
	summary.PhotoID = photoID
	return summary, nil
}

func (s *stubGeneration) RunSingleDesign(ctx context.Context, photoID string, designID int) (*domain.DesignResult, error) {
	s.singleCalls++
	if s.singleErr != nil {
		return nil, s.singleErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &domain.DesignResult{PhotoID: photoID, DesignID: designID, Status: domain.ResultStatusComplete}, nil
}

type stubPhotos struct {
	photos map[string]*domain.Photo
}

func (s *stubPhotos) Create(ctx context.Context, photo *domain.Photo) error {
	s.photos[photo.ID] = photo
	return nil
}

func (s *stubPhotos) GetByID(ctx context.Context, photoID string) (*domain.Photo, error) {
	photo, ok := s.photos[photoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return photo, nil
}

func (s *stubPhotos) MarkComplete(ctx context.Context, photoID string) (bool, error) {
	return false, nil
}

func (s *stubPhotos) SetFavorite(ctx context.Context, photoID string, designID int) error {
	if _, ok := s.photos[photoID]; !ok {
		return domain.ErrNotFound
	}
	s.photos[photoID].FavoriteDesignID = &designID
	return nil
}

func (s *stubPhotos) ListIncomplete(ctx context.Context, olderThan time.Time, limit int) ([]domain.Photo, error) {
	return nil, nil
}

type stubResults struct {
	results []domain.DesignResult
	failing []domain.FailingResult
}

func (s *stubResults) Upsert(ctx context.Context, photoID string, designID int, resultKey, resultURL string, failure domain.FailureKind) (*domain.DesignResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubResults) ListByPhoto(ctx context.Context, photoID string) ([]domain.DesignResult, error) {
	return s.results, nil
}

func (s *stubResults) CountComplete(ctx context.Context, photoID string) (int, error) {
	return 0, nil
}

func (s *stubResults) ListFailing(ctx context.Context, limit int) ([]domain.FailingResult, error) {
	return s.failing, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, key, mime string, data []byte) (publish.Object, error) {
	return publish.Object{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func newServer(gen *stubGeneration, photos *stubPhotos, results *stubResults) http.Handler {
	app := &handlers.App{
		Photos:     photos,
		Results:    results,
		Generation: gen,
		Publisher:  stubPublisher{},
		Logger:     zerolog.Nop(),
	}
	return httpapi.NewRouter(app, httpapi.Options{Logger: zerolog.Nop()})
}

func TestGeneratePhotoReturnsSummary(t *testing.T) {
	gen := &stubGeneration{summary: generation.Summary{Rounds: 1, Total: 16, Complete: 16, Converged: true}}
	photos := &stubPhotos{photos: map[string]*domain.Photo{}}
	router := newServer(gen, photos, &stubResults{})

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/photo-1/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary generation.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !summary.Converged || summary.PhotoID != "photo-1" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if gen.fullCalls != 1 {
		t.Fatalf("expected one orchestrator call, got %d", gen.fullCalls)
	}
}

func TestGeneratePhotoMissingPhoto(t *testing.T) {
	gen := &stubGeneration{fullErr: domain.ErrNotFound}
	router := newServer(gen, &stubPhotos{photos: map[string]*domain.Photo{}}, &stubResults{})

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/nope/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGenerateDesignValidatesID(t *testing.T) {
	gen := &stubGeneration{}
	router := newServer(gen, &stubPhotos{photos: map[string]*domain.Photo{}}, &stubResults{})

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/photo-1/designs/abc/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if gen.singleCalls != 0 {
		t.Fatal("orchestrator must not be called for an invalid design id")
	}
}

func TestGenerateDesignReturnsResult(t *testing.T) {
	gen := &stubGeneration{result: &domain.DesignResult{
		PhotoID:   "photo-1",
		DesignID:  3,
		Status:    domain.ResultStatusComplete,
		ResultURL: "https://cdn.example.com/photos/photo-1/designs/03.png",
	}}
	router := newServer(gen, &stubPhotos{photos: map[string]*domain.Photo{}}, &stubResults{})

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/photo-1/designs/3/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "complete" || body["design_id"] != float64(3) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestListResults(t *testing.T) {
	photos := &stubPhotos{photos: map[string]*domain.Photo{
		"photo-1": {ID: "photo-1", Status: domain.PhotoStatusPending},
	}}
	results := &stubResults{results: []domain.DesignResult{
		{DesignID: 1, Status: domain.ResultStatusComplete, ResultURL: "https://cdn.example.com/1.png"},
		{DesignID: 2, Status: domain.ResultStatusFail, FailureKind: domain.FailureRateLimited},
	}}
	router := newServer(&stubGeneration{}, photos, results)

	req := httptest.NewRequest(http.MethodGet, "/v1/photos/photo-1/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate_limited") {
		t.Fatalf("expected failure kind in payload: %s", rec.Body.String())
	}
}

func TestListResultsUnknownPhoto(t *testing.T) {
	router := newServer(&stubGeneration{}, &stubPhotos{photos: map[string]*domain.Photo{}}, &stubResults{})

	req := httptest.NewRequest(http.MethodGet, "/v1/photos/ghost/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListFailing(t *testing.T) {
	results := &stubResults{failing: []domain.FailingResult{
		{PhotoID: "photo-1", DesignID: 7, FailureKind: domain.FailureProvider},
	}}
	router := newServer(&stubGeneration{}, &stubPhotos{photos: map[string]*domain.Photo{}}, results)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/failing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "photo-1") {
		t.Fatalf("expected failing row in payload: %s", rec.Body.String())
	}
}

func TestSetFavorite(t *testing.T) {
	photos := &stubPhotos{photos: map[string]*domain.Photo{
		"photo-1": {ID: "photo-1", Status: domain.PhotoStatusComplete},
	}}
	router := newServer(&stubGeneration{}, photos, &stubResults{})

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/photo-1/favorite", strings.NewReader(`{"design_id":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if photos.photos["photo-1"].FavoriteDesignID == nil || *photos.photos["photo-1"].FavoriteDesignID != 5 {
		t.Fatal("favorite design not persisted")
	}
}

func TestCORSHonorsConfiguredOrigins(t *testing.T) {
	app := &handlers.App{
		Photos:     &stubPhotos{photos: map[string]*domain.Photo{}},
		Results:    &stubResults{},
		Generation: &stubGeneration{},
		Publisher:  stubPublisher{},
		Logger:     zerolog.Nop(),
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"https://app.pinkroom.example"},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("Origin", "https://app.pinkroom.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.pinkroom.example" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must get no CORS headers, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/healthz", nil)
	req.Header.Set("Origin", "https://app.pinkroom.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newServer(&stubGeneration{}, &stubPhotos{photos: map[string]*domain.Photo{}}, &stubResults{})

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
