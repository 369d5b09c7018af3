package testutil

import (
	"net/http"

	id "verity/pkg/domain"
	"verity/pkg/requestcontext"
)

// AsApplicant simulates what the auth middleware does for an applicant token.
// Invalid IDs leave the request unauthenticated.
func AsApplicant(req *http.Request, applicantID string) *http.Request {
	parsed, err := id.ParseApplicantID(applicantID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithApplicantID(req.Context(), parsed)
	ctx = requestcontext.WithRole(ctx, requestcontext.RoleApplicant)
	ctx = requestcontext.WithActor(ctx, applicantID)
	return req.WithContext(ctx)
}

// AsOperator marks the request as coming from a review operator.
func AsOperator(req *http.Request, operator string) *http.Request {
	ctx := requestcontext.WithRole(req.Context(), requestcontext.RoleOperator)
	ctx = requestcontext.WithActor(ctx, operator)
	return req.WithContext(ctx)
}
