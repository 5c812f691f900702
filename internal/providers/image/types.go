package image

import (
	"context"
	"errors"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
)

// GenerateRequest describes one derivation attempt: apply a design's prompt
// to a customer's source photo.
type GenerateRequest struct {
	PhotoID   string
	DesignID  int
	SourceURL string
	Prompt    string
	SampleURL string
}

// Asset is the raw artifact returned by a provider before publishing.
type Asset struct {
	Data   []byte
	Format string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Asset, error)
}

// Fault wraps a provider error with its closed classification so callers can
// record the failure kind without parsing provider payloads.
type Fault struct {
	Kind domain.FailureKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

// ClassifyFault extracts the failure kind from err, defaulting to
// provider_error for anything unclassified.
func ClassifyFault(err error) domain.FailureKind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	return domain.FailureProvider
}
