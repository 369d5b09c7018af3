package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and other
// infrastructure return these (optionally wrapped) so services can translate
// them into domain errors.
//
//   - ErrNotFound: entity or cache entry does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrExpired: cache entry outlived its TTL
//   - ErrInvalidState: conditional update lost against a concurrent transition
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
