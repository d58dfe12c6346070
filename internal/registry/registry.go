// Package registry exposes the property-registry operations. Each method is
// one ledger invocation: the identity and property services compute the
// result against the invocation's Tx and the runtime commits the writes.
package registry

import (
	"context"
	"log/slog"

	"propreg/internal/ledger"
	"propreg/internal/registry/identity"
	"propreg/internal/registry/models"
	"propreg/internal/registry/property"
)

// Invoker runs one atomic invocation. *ledger.Runtime implements it.
type Invoker interface {
	Invoke(ctx context.Context, fn string, body func(ctx context.Context, tx ledger.Tx) error) error
}

// Function names, as recorded on commit events and metrics.
const (
	FnRequestOnboarding = "requestOnboarding"
	FnApproveOnboarding = "approveOnboarding"
	FnRecharge          = "recharge"
	FnGetUser           = "getUser"
	FnRequestListing    = "requestListing"
	FnApproveListing    = "approveListing"
	FnGetProperty       = "getProperty"
	FnUpdateListing     = "updateListing"
	FnPurchase          = "purchase"
)

type Registry struct {
	invoker  Invoker
	identity *identity.Service
	property *property.Service
	logger   *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithIdentityService(svc *identity.Service) Option {
	return func(r *Registry) {
		r.identity = svc
	}
}

func New(invoker Invoker, opts ...Option) *Registry {
	r := &Registry{
		invoker:  invoker,
		identity: identity.New(),
		property: property.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Instantiate is called once when the registry is brought up.
func (r *Registry) Instantiate(ctx context.Context) {
	r.logger.InfoContext(ctx, "property registry instantiated")
}

func invoke[T any](ctx context.Context, inv Invoker, fn string, body func(ctx context.Context, tx ledger.Tx) (T, error)) (T, error) {
	var out T
	err := inv.Invoke(ctx, fn, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		out, err = body(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (r *Registry) RequestOnboarding(ctx context.Context, name, email, phone, ssn string) (*models.OnboardingRequest, error) {
	return invoke(ctx, r.invoker, FnRequestOnboarding, func(ctx context.Context, tx ledger.Tx) (*models.OnboardingRequest, error) {
		return r.identity.RequestOnboarding(ctx, tx, name, email, phone, ssn)
	})
}

func (r *Registry) ApproveOnboarding(ctx context.Context, name, ssn string) (*models.User, error) {
	return invoke(ctx, r.invoker, FnApproveOnboarding, func(ctx context.Context, tx ledger.Tx) (*models.User, error) {
		return r.identity.ApproveOnboarding(ctx, tx, name, ssn)
	})
}

func (r *Registry) Recharge(ctx context.Context, name, ssn, voucher string) (*models.User, error) {
	return invoke(ctx, r.invoker, FnRecharge, func(ctx context.Context, tx ledger.Tx) (*models.User, error) {
		return r.identity.Recharge(ctx, tx, name, ssn, voucher)
	})
}

func (r *Registry) GetUser(ctx context.Context, name, ssn string) (*models.User, error) {
	return invoke(ctx, r.invoker, FnGetUser, func(ctx context.Context, tx ledger.Tx) (*models.User, error) {
		return r.identity.GetUser(ctx, tx, name, ssn)
	})
}

func (r *Registry) RequestListing(ctx context.Context, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.ListingRequest, error) {
	return invoke(ctx, r.invoker, FnRequestListing, func(ctx context.Context, tx ledger.Tx) (*models.ListingRequest, error) {
		return r.property.RequestListing(ctx, tx, propertyID, ownerName, ownerSSN, price, status)
	})
}

func (r *Registry) ApproveListing(ctx context.Context, propertyID string) (*models.Property, error) {
	return invoke(ctx, r.invoker, FnApproveListing, func(ctx context.Context, tx ledger.Tx) (*models.Property, error) {
		return r.property.ApproveListing(ctx, tx, propertyID)
	})
}

func (r *Registry) GetProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	return invoke(ctx, r.invoker, FnGetProperty, func(ctx context.Context, tx ledger.Tx) (*models.Property, error) {
		return r.property.GetProperty(ctx, tx, propertyID)
	})
}

func (r *Registry) UpdateListing(ctx context.Context, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.Property, error) {
	return invoke(ctx, r.invoker, FnUpdateListing, func(ctx context.Context, tx ledger.Tx) (*models.Property, error) {
		return r.property.UpdateListing(ctx, tx, propertyID, ownerName, ownerSSN, price, status)
	})
}

func (r *Registry) Purchase(ctx context.Context, propertyID, buyerName, buyerSSN string) (*models.Property, error) {
	return invoke(ctx, r.invoker, FnPurchase, func(ctx context.Context, tx ledger.Tx) (*models.Property, error) {
		return r.property.Purchase(ctx, tx, propertyID, buyerName, buyerSSN)
	})
}
