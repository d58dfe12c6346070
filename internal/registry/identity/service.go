// Package identity implements onboarding and balance operations on User
// records. Every operation reads and writes only through the ledger.Tx it is
// given and issues no write until all of its checks have passed.
package identity

import (
	"context"
	"fmt"

	"propreg/internal/ledger"
	"propreg/internal/registry/models"
	"propreg/internal/registry/records"
	dErrors "propreg/pkg/domain-errors"
)

// Service holds no ledger state; it is safe to share across invocations.
type Service struct {
	vouchers map[string]int64
}

type Option func(*Service)

// WithVouchers replaces the recharge voucher table.
func WithVouchers(vouchers map[string]int64) Option {
	return func(s *Service) {
		s.vouchers = make(map[string]int64, len(vouchers))
		for k, v := range vouchers {
			s.vouchers[k] = v
		}
	}
}

func New(opts ...Option) *Service {
	s := &Service{vouchers: models.DefaultVouchers()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestOnboarding records a pending identity. A second request for the
// same (name, ssn) replaces the first.
func (s *Service) RequestOnboarding(_ context.Context, tx ledger.Tx, name, email, phone, ssn string) (*models.OnboardingRequest, error) {
	if err := models.NewUserRef(name, ssn).Validate(); err != nil {
		return nil, err
	}
	req := &models.OnboardingRequest{
		Name:      name,
		Email:     email,
		Phone:     phone,
		SSN:       ssn,
		CreatedAt: tx.TxTime(),
	}
	if err := records.Save(tx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store onboarding request")
	}
	return req, nil
}

// ApproveOnboarding turns a pending request into a User with a zero
// balance and consumes the request. Both writes commit together.
func (s *Service) ApproveOnboarding(ctx context.Context, tx ledger.Tx, name, ssn string) (*models.User, error) {
	ref := models.NewUserRef(name, ssn)
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	req, err := records.LoadOnboardingRequest(ctx, tx, name, ssn)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("onboarding request for %s not found", name))
	}
	userKey, err := ref.Key()
	if err != nil {
		return nil, err
	}
	exists, err := records.Exists(ctx, tx, userKey)
	if err != nil {
		return nil, records.DomainError(err, "")
	}
	if exists {
		// approving again would reset the balance
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "user %s is already onboarded", name)
	}

	user := models.NewUserFromRequest(req)
	if err := records.Save(tx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store user")
	}
	if err := records.Remove(tx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume onboarding request")
	}
	return user, nil
}

// Recharge credits the user with the amount the voucher is worth.
func (s *Service) Recharge(ctx context.Context, tx ledger.Tx, name, ssn, voucher string) (*models.User, error) {
	ref := models.NewUserRef(name, ssn)
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	user, err := records.LoadUser(ctx, tx, ref)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("user %s not found", name))
	}
	amount, ok := s.vouchers[voucher]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument, "unknown voucher %q", voucher)
	}
	if err := user.Credit(amount); err != nil {
		return nil, err
	}
	if err := records.Save(tx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store user")
	}
	return user, nil
}

// GetUser returns the User record. It never writes.
func (s *Service) GetUser(ctx context.Context, tx ledger.Tx, name, ssn string) (*models.User, error) {
	ref := models.NewUserRef(name, ssn)
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	user, err := records.LoadUser(ctx, tx, ref)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("user %s not found", name))
	}
	return user, nil
}
