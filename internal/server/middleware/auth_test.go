package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	userID uuid.UUID
	err    error
}

type fakeClaims struct{ userID uuid.UUID }

func (c fakeClaims) GetUserID() uuid.UUID { return c.userID }

func (v fakeValidator) ValidateToken(token string) (UserIDGetter, error) {
	if v.err != nil {
		return nil, v.err
	}
	return fakeClaims{userID: v.userID}, nil
}

func protected(t *testing.T, wantUserID uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := GetUserID(r)
		require.NoError(t, err)
		assert.Equal(t, wantUserID, got)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthValidToken(t *testing.T) {
	userID := uuid.New()
	handler := Auth(fakeValidator{userID: userID})(protected(t, userID))

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc123"},
		{name: "bearer with no token", header: "Bearer"},
		{name: "invalid token", header: "Bearer bad", err: fmt.Errorf("expired")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(fakeValidator{userID: uuid.New(), err: tt.err})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("handler must not run")
				}))

			req := httptest.NewRequest("GET", "/api/jobs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthCaseInsensitiveBearer(t *testing.T) {
	userID := uuid.New()
	handler := Auth(fakeValidator{userID: userID})(protected(t, userID))

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	req.Header.Set("Authorization", "bearer lowercase-prefix")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserIDMissing(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, err := GetUserID(req)
	assert.Error(t, err)
}
