package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger backends and the
// invocation runtime return these (optionally wrapped) so registry services
// can translate them into domain errors.
//
// These represent factual states about keys, not validation failures:
// - ErrNotFound: key is absent (never written, or tombstoned)
// - ErrConflict: a version in the read set moved before commit
// - ErrInvalidState: stored bytes are not the record kind the caller expected
// - ErrUnavailable: backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
