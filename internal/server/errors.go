// Package server provides the HTTP REST API for the campaign studio.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/store"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus maps an error to the HTTP status code the API returns for it.
// Pipeline errors carry the job-state semantics: InvalidState conflicts,
// NotFound is a missing job or content type, RateLimited is an exhausted
// regeneration cap.
func HTTPStatus(err error) int {
	switch {
	case pipeline.IsInvalidState(err):
		return http.StatusConflict
	case pipeline.IsNotFound(err):
		return http.StatusNotFound
	case pipeline.IsRateLimited(err):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	}

	switch err.(type) {
	case *ErrEmailAlreadyExists:
		return http.StatusConflict
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
