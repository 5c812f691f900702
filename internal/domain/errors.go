package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrSourceMissing   = errors.New("photo has no source image")
	ErrEmptyCatalog    = errors.New("design catalog is empty")
	ErrProviderFailure = errors.New("provider failure")
	ErrStorageFailure  = errors.New("storage failure")
)
