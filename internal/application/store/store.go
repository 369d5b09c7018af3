// Package store persists applications and their documents.
//
// Status changes are conditional on the status the caller last saw, so a
// Cancel that lands while the workflow is being driven is never overwritten.
package store

import (
	"verity/internal/application/models"
)

var openStatuses = []models.Status{models.StatusDraft, models.StatusUnderReview}
