package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	jobID := uuid.New()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid state conflicts",
			err:  &pipeline.InvalidStateError{JobID: jobID, Status: types.JobRunning, Reason: "busy"},
			want: http.StatusConflict,
		},
		{
			name: "job not found",
			err:  &pipeline.NotFoundError{JobID: jobID},
			want: http.StatusNotFound,
		},
		{
			name: "regeneration cap",
			err:  &pipeline.RateLimitedError{JobID: jobID, ContentType: types.ContentText, Cap: 1},
			want: http.StatusTooManyRequests,
		},
		{
			name: "wrapped pipeline error still maps",
			err:  fmt.Errorf("requesting regeneration: %w", &pipeline.NotFoundError{JobID: jobID}),
			want: http.StatusNotFound,
		},
		{
			name: "store not found",
			err:  store.ErrNotFound,
			want: http.StatusNotFound,
		},
		{
			name: "store duplicate",
			err:  store.ErrDuplicate,
			want: http.StatusConflict,
		},
		{
			name: "email exists",
			err:  &ErrEmailAlreadyExists{Email: "a@b.com"},
			want: http.StatusConflict,
		},
		{
			name: "bad credentials",
			err:  &ErrInvalidCredentials{},
			want: http.StatusUnauthorized,
		},
		{
			name: "validation",
			err:  &ErrValidation{Field: "business_url", Message: "required"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
