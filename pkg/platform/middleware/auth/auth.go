package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "verity/pkg/domain"
	"verity/pkg/requestcontext"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	Subject string
	Role    string
	JTI     string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// RequireAuth validates the bearer token and stores the caller identity in the
// request context. Applicant tokens must carry a UUID subject.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			role := requestcontext.Role(claims.Role)
			switch role {
			case requestcontext.RoleApplicant:
				applicantID, err := id.ParseApplicantID(claims.Subject)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token subject")
					return
				}
				ctx = requestcontext.WithApplicantID(ctx, applicantID)
			case requestcontext.RoleOperator:
			default:
				logger.WarnContext(ctx, "unauthorized access - unknown role",
					"role", claims.Role,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Unsupported role")
				return
			}

			ctx = requestcontext.WithRole(ctx, role)
			ctx = requestcontext.WithActor(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose token role differs from role.
func RequireRole(role requestcontext.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.CallerRole(ctx) != role {
				logger.WarnContext(ctx, "forbidden - role mismatch",
					"required_role", role,
					"actor", requestcontext.Actor(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
