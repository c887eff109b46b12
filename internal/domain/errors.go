// Package domain provides shared domain-level sentinel errors, used by
// every transport (HTTP, MCP) to map failures onto their wire representation.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist, or the caller
// is not a witness and existence must not be revealed (Forbidden and
// NotFound are deliberately indistinguishable at the transport boundary).
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a schema or field-type violation in the request.
var ErrValidation = errors.New("validation")

// ErrForbidden indicates the witness check failed for the requesting entity.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyExists indicates a duplicate memory_id on creation.
var ErrAlreadyExists = errors.New("already exists")

// ErrRateLimited indicates the caller exceeded its request quota.
var ErrRateLimited = errors.New("rate limited")

// ErrTimeout indicates a deadline expired before the operation completed.
var ErrTimeout = errors.New("timeout")

// ErrStorageError indicates a transient backend failure.
var ErrStorageError = errors.New("storage error")

// ErrUpstreamError indicates an embedder or curator collaborator call failed.
var ErrUpstreamError = errors.New("upstream error")
