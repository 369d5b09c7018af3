// Package handler is the thin HTTP layer over the application lifecycle
// operations.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verity/internal/application/models"
	"verity/internal/application/service"
	riskmodels "verity/internal/risk/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/httputil"
	"verity/pkg/platform/middleware/auth"
	"verity/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the lifecycle controller as the handler sees it.
type Service interface {
	Create(ctx context.Context, applicantID id.ApplicantID, appType string, metadata map[string]string) (*models.Application, error)
	Update(ctx context.Context, appID id.ApplicationID, fields map[string]string) (*models.Application, error)
	UploadDocument(ctx context.Context, appID id.ApplicationID, docType, fileRef, contentHash string) (*models.Document, error)
	Submit(ctx context.Context, appID id.ApplicationID) (*service.Status, error)
	Cancel(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error)
	Resubmit(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	GetStatus(ctx context.Context, appID id.ApplicationID) (*service.Status, error)
	GetProgress(ctx context.Context, appID id.ApplicationID) (wfmodels.Progress, error)
	RiskHistory(ctx context.Context, appID id.ApplicationID) ([]riskmodels.Assessment, error)
	ReprocessDocument(ctx context.Context, docID id.DocumentID) (*models.Document, *riskmodels.Assessment, error)
	RunRiskAssessment(ctx context.Context, appID id.ApplicationID) (*riskmodels.Assessment, error)
	DecideReview(ctx context.Context, appID id.ApplicationID, decision service.Decision, reason string) (*models.Application, error)
	RetryStep(ctx context.Context, appID id.ApplicationID) (*service.Status, error)
}

type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
	middlewares  []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithMiddleware adds middleware that runs after authentication, so the caller
// identity is available to it.
func WithMiddleware(mws ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.middlewares = append(h.middlewares, mws...)
	}
}

func New(svc Service, logger *slog.Logger, jwtValidator auth.JWTValidator, opts ...Option) *Handler {
	h := &Handler{service: svc, logger: logger, jwtValidator: jwtValidator}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes behind token authentication. Operator-only routes
// additionally require the operator role.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		r.Use(h.middlewares...)
		h.routes(r)
	})
}

func (h *Handler) routes(r chi.Router) {
	operatorOnly := auth.RequireRole(requestcontext.RoleOperator, h.logger)

	r.Post("/applications", h.handleCreate)
	r.Route("/applications/{applicationID}", func(r chi.Router) {
		r.Get("/", h.handleGetStatus)
		r.Patch("/", h.handleUpdate)
		r.Get("/progress", h.handleGetProgress)
		r.Get("/risk", h.handleRiskHistory)
		r.Post("/documents", h.handleUpload)
		r.Post("/submit", h.handleSubmit)
		r.Post("/cancel", h.handleCancel)
		r.Post("/resubmit", h.handleResubmit)

		r.With(operatorOnly).Post("/risk-assessments", h.handleRunAssessment)
		r.With(operatorOnly).Post("/review", h.handleReview)
		r.With(operatorOnly).Post("/retry", h.handleRetry)
	})
	r.With(operatorOnly).Post("/documents/{documentID}/reprocess", h.handleReprocess)
}

type createRequest struct {
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata"`
}

type updateRequest struct {
	Metadata map[string]string `json:"metadata"`
}

type uploadRequest struct {
	Type        string `json:"type"`
	FileRef     string `json:"file_ref"`
	ContentHash string `json:"content_hash"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

type reprocessResponse struct {
	Document *models.Document       `json:"document"`
	Risk     *riskmodels.Assessment `json:"risk"`
}

type riskHistoryResponse struct {
	Assessments []riskmodels.Assessment `json:"assessments"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if requestcontext.CallerRole(ctx) != requestcontext.RoleApplicant {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only applicants can create applications"))
		return
	}
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.Create(ctx, requestcontext.ApplicantID(ctx), req.Type, req.Metadata)
	if err != nil {
		h.fail(ctx, w, "create application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	status, err := h.service.GetStatus(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "get status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.Update(ctx, appID, req.Metadata)
	if err != nil {
		h.fail(ctx, w, "update application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	progress, err := h.service.GetProgress(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "get progress", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}

func (h *Handler) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	history, err := h.service.RiskHistory(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "list risk history", err)
		return
	}
	if history == nil {
		history = []riskmodels.Assessment{}
	}
	httputil.WriteJSON(w, http.StatusOK, riskHistoryResponse{Assessments: history})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req uploadRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.UploadDocument(ctx, appID, req.Type, req.FileRef, req.ContentHash)
	if err != nil {
		h.fail(ctx, w, "upload document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	status, err := h.service.Submit(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "submit application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.Cancel(ctx, appID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "cancel application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	app, err := h.service.Resubmit(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "resubmit application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleRunAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	a, err := h.service.RunRiskAssessment(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "run risk assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.DecideReview(ctx, appID, service.Decision(req.Decision), req.Reason)
	if err != nil {
		h.fail(ctx, w, "decide review", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	status, err := h.service.RetryStep(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "retry step", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleReprocess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, a, err := h.service.ReprocessDocument(ctx, docID)
	if err != nil {
		h.fail(ctx, w, "reprocess document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reprocessResponse{Document: doc, Risk: a})
}

// authorize parses the application ID and, for applicants, checks ownership.
// Applications owned by someone else are reported as not found.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (id.ApplicationID, bool) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return appID, false
	}
	if requestcontext.CallerRole(ctx) == requestcontext.RoleOperator {
		return appID, true
	}
	status, err := h.service.GetStatus(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "authorize", err)
		return appID, false
	}
	if status.Application.ApplicantID != requestcontext.ApplicantID(ctx) {
		h.logger.WarnContext(ctx, "applicant requested another applicant's application",
			"application_id", appID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "application not found"))
		return appID, false
	}
	return appID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
