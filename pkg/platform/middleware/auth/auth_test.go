package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"verity/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	applicant := uuid.New()

	var seenRole requestcontext.Role
	var seenApplicant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole = requestcontext.CallerRole(r.Context())
		seenApplicant = requestcontext.ApplicantID(r.Context()).String()
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		status    int
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer x", stubValidator{err: errors.New("bad")}, http.StatusUnauthorized},
		{"unknown role", "Bearer x", stubValidator{claims: &JWTClaims{Subject: applicant.String(), Role: "root"}}, http.StatusForbidden},
		{"applicant with non-uuid subject", "Bearer x", stubValidator{claims: &JWTClaims{Subject: "bob", Role: "applicant"}}, http.StatusUnauthorized},
		{"valid applicant", "Bearer x", stubValidator{claims: &JWTClaims{Subject: applicant.String(), Role: "applicant"}}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/applications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(tt.validator, logger)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, requestcontext.RoleApplicant, seenRole)
	assert.Equal(t, applicant.String(), seenApplicant)
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRole(requestcontext.RoleOperator, logger)(next)

	req := httptest.NewRequest(http.MethodPost, "/applications/x/review", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(requestcontext.WithRole(req.Context(), requestcontext.RoleApplicant)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(requestcontext.WithRole(req.Context(), requestcontext.RoleOperator)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
