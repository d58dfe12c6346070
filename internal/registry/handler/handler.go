// Package handler exposes the registry over HTTP. User operations live under
// /v1; registrar approvals and lookups live under /v1/admin behind the admin
// token.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"propreg/internal/registry/models"
	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/platform/httputil"
	"propreg/pkg/platform/middleware/admin"
	"propreg/pkg/requestcontext"
)

// Service is the registry surface the handlers call. *registry.Registry
// implements it.
type Service interface {
	RequestOnboarding(ctx context.Context, name, email, phone, ssn string) (*models.OnboardingRequest, error)
	ApproveOnboarding(ctx context.Context, name, ssn string) (*models.User, error)
	Recharge(ctx context.Context, name, ssn, voucher string) (*models.User, error)
	GetUser(ctx context.Context, name, ssn string) (*models.User, error)
	RequestListing(ctx context.Context, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.ListingRequest, error)
	ApproveListing(ctx context.Context, propertyID string) (*models.Property, error)
	GetProperty(ctx context.Context, propertyID string) (*models.Property, error)
	UpdateListing(ctx context.Context, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.Property, error)
	Purchase(ctx context.Context, propertyID, buyerName, buyerSSN string) (*models.Property, error)
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{
		service:    service,
		logger:     logger,
		adminToken: adminToken,
	}
}

// Register mounts the user and admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/onboarding-requests", h.HandleRequestOnboarding)
		r.Post("/recharges", h.HandleRecharge)
		r.Get("/users", h.HandleGetUser)
		r.Post("/listing-requests", h.HandleRequestListing)
		r.Get("/properties/{propertyID}", h.HandleGetProperty)
		r.Put("/properties/{propertyID}", h.HandleUpdateListing)
		r.Post("/properties/{propertyID}/purchase", h.HandlePurchase)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
			r.Post("/onboarding-approvals", h.HandleApproveOnboarding)
			r.Get("/users", h.HandleGetUser)
			r.Post("/listing-requests/{propertyID}/approve", h.HandleApproveListing)
			r.Get("/properties/{propertyID}", h.HandleGetProperty)
		})
	})
}

func (h *Handler) HandleRequestOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[OnboardingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.RequestOnboarding(ctx, req.Name, req.Email, req.Phone, req.SSN)
	if err != nil {
		h.fail(ctx, w, "request onboarding", err)
		return
	}
	h.logger.InfoContext(ctx, "onboarding requested", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusCreated, fromOnboardingRequest(res))
}

func (h *Handler) HandleApproveOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.service.ApproveOnboarding(ctx, req.Name, req.SSN)
	if err != nil {
		h.fail(ctx, w, "approve onboarding", err)
		return
	}
	h.logger.InfoContext(ctx, "onboarding approved", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusCreated, fromUser(user))
}

func (h *Handler) HandleRecharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RechargeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.service.Recharge(ctx, req.Name, req.SSN, req.Voucher)
	if err != nil {
		h.fail(ctx, w, "recharge", err)
		return
	}
	h.logger.InfoContext(ctx, "balance recharged",
		"request_id", requestID,
		"voucher", req.Voucher,
	)
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

// HandleGetUser serves GET /v1/users?name=&ssn= and its admin twin.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	req := UserRequest{Name: q.Get("name"), SSN: q.Get("ssn")}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.service.GetUser(ctx, req.Name, req.SSN)
	if err != nil {
		h.fail(ctx, w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleRequestListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.RequestListing(ctx, req.PropertyID, req.OwnerName, req.OwnerSSN, *req.Price, req.Status)
	if err != nil {
		h.fail(ctx, w, "request listing", err)
		return
	}
	h.logger.InfoContext(ctx, "listing requested",
		"request_id", requestID,
		"property_id", req.PropertyID,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromListingRequest(res))
}

func (h *Handler) HandleApproveListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID := chi.URLParam(r, "propertyID")

	property, err := h.service.ApproveListing(ctx, propertyID)
	if err != nil {
		h.fail(ctx, w, "approve listing", err)
		return
	}
	h.logger.InfoContext(ctx, "listing approved",
		"request_id", requestcontext.RequestID(ctx),
		"property_id", propertyID,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromProperty(property))
}

func (h *Handler) HandleGetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	property, err := h.service.GetProperty(ctx, chi.URLParam(r, "propertyID"))
	if err != nil {
		h.fail(ctx, w, "get property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProperty(property))
}

func (h *Handler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	propertyID := chi.URLParam(r, "propertyID")

	req, ok := httputil.DecodeAndPrepare[UpdateListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	property, err := h.service.UpdateListing(ctx, propertyID, req.OwnerName, req.OwnerSSN, *req.Price, req.Status)
	if err != nil {
		h.fail(ctx, w, "update listing", err)
		return
	}
	h.logger.InfoContext(ctx, "listing updated",
		"request_id", requestID,
		"property_id", propertyID,
		"status", property.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, fromProperty(property))
}

func (h *Handler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	propertyID := chi.URLParam(r, "propertyID")

	req, ok := httputil.DecodeAndPrepare[PurchaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	property, err := h.service.Purchase(ctx, propertyID, req.BuyerName, req.BuyerSSN)
	if err != nil {
		h.fail(ctx, w, "purchase", err)
		return
	}
	h.logger.InfoContext(ctx, "property purchased",
		"request_id", requestID,
		"property_id", propertyID,
	)
	httputil.WriteJSON(w, http.StatusOK, fromProperty(property))
}

// fail logs err at a level matching its code and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
