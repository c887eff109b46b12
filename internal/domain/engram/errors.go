package engram

import "errors"

// ErrInvalidVector indicates a resonance vector failed the dimension or
// finiteness check (§3.2 invariant 3).
var ErrInvalidVector = errors.New("invalid vector")

// ErrInvalidTimestamp indicates a timestamp field is not RFC-3339 UTC
// with a trailing "Z" (§3.2 invariant 9).
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ErrValidationField indicates a single field failed a domain-level
// constraint (closed vocabulary membership, bounded range, matched
// list lengths). Callers wrap these into domain.ErrValidation at the
// transport boundary.
var ErrValidationField = errors.New("invalid field")
