package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
)

type stubPhotoRepo struct {
	incomplete []domain.Photo
	listErr    error
}

func (r *stubPhotoRepo) Create(ctx context.Context, photo *domain.Photo) error { return nil }

func (r *stubPhotoRepo) GetByID(ctx context.Context, photoID string) (*domain.Photo, error) {
	return nil, domain.ErrNotFound
}

func (r *stubPhotoRepo) MarkComplete(ctx context.Context, photoID string) (bool, error) {
	return false, nil
}

func (r *stubPhotoRepo) SetFavorite(ctx context.Context, photoID string, designID int) error {
	return nil
}

func (r *stubPhotoRepo) ListIncomplete(ctx context.Context, olderThan time.Time, limit int) ([]domain.Photo, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.incomplete, nil
}

type countingRunner struct {
	mu       sync.Mutex
	ran      []string
	inFlight int64
	maxSeen  int64
	failFor  map[string]bool
}

func (r *countingRunner) RunFullGeneration(ctx context.Context, photoID string) (generation.Summary, error) {
	current := atomic.AddInt64(&r.inFlight, 1)
	defer atomic.AddInt64(&r.inFlight, -1)
	for {
		seen := atomic.LoadInt64(&r.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt64(&r.maxSeen, seen, current) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.ran = append(r.ran, photoID)
	failed := r.failFor[photoID]
	r.mu.Unlock()

	if failed {
		return generation.Summary{}, errors.New("boom")
	}
	return generation.Summary{PhotoID: photoID, Converged: true}, nil
}

func incompletePhotos(n int) []domain.Photo {
	photos := make([]domain.Photo, n)
	for i := range photos {
		photos[i] = domain.Photo{ID: fmt.Sprintf("photo-%d", i), Status: domain.PhotoStatusPending}
	}
	return photos
}

func TestSweepOnceProcessesAllPhotos(t *testing.T) {
	runner := &countingRunner{}
	s := NewSweeper(&stubPhotoRepo{incomplete: incompletePhotos(9)}, runner, nil, zerolog.Nop(), Config{Concurrency: 3})

	if err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if got := len(runner.ran); got != 9 {
		t.Fatalf("expected 9 photos processed, got %d", got)
	}
	if runner.maxSeen > 3 {
		t.Fatalf("concurrency bound exceeded: saw %d in flight", runner.maxSeen)
	}
}

func TestSweepOnceSurvivesPerPhotoFailures(t *testing.T) {
	runner := &countingRunner{failFor: map[string]bool{"photo-1": true}}
	s := NewSweeper(&stubPhotoRepo{incomplete: incompletePhotos(4)}, runner, nil, zerolog.Nop(), Config{Concurrency: 2})

	if err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("per-photo failure must not abort the pass: %v", err)
	}
	if got := len(runner.ran); got != 4 {
		t.Fatalf("expected all 4 photos attempted, got %d", got)
	}
}

func TestSweepOncePropagatesListError(t *testing.T) {
	runner := &countingRunner{}
	s := NewSweeper(&stubPhotoRepo{listErr: errors.New("db down")}, runner, nil, zerolog.Nop(), Config{})

	if err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("expected error when listing fails")
	}
}

func TestSweepOnceEmptyBacklog(t *testing.T) {
	runner := &countingRunner{}
	s := NewSweeper(&stubPhotoRepo{}, runner, nil, zerolog.Nop(), Config{})

	if err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("empty backlog should be a no-op: %v", err)
	}
	if len(runner.ran) != 0 {
		t.Fatal("no photos should run on an empty backlog")
	}
}
