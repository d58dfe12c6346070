package models

import (
	"math"
	"time"

	dErrors "propreg/pkg/domain-errors"
)

// Recharge vouchers and the coins each one is worth.
var defaultVouchers = map[string]int64{
	"upg100":  100,
	"upg500":  500,
	"upg1000": 1000,
}

// DefaultVouchers returns a copy of the built-in voucher table.
func DefaultVouchers() map[string]int64 {
	out := make(map[string]int64, len(defaultVouchers))
	for k, v := range defaultVouchers {
		out[k] = v
	}
	return out
}

// OnboardingRequest is a pending identity awaiting registrar approval.
// It is consumed by the approval that creates the matching User.
type OnboardingRequest struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	SSN       string    `json:"ssn"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *OnboardingRequest) DocType() string { return KindOnboardingRequest }

func (r *OnboardingRequest) Key() (string, error) {
	return OnboardingRequestKey(r.Name, r.SSN)
}

// User is an approved identity with a coin balance.
//
// Invariants:
//   - Balance is never negative
//   - Balance changes only through Credit and Debit
type User struct {
	Name      string    `json:"name"`
	SSN       string    `json:"ssn"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	Balance   int64     `json:"balance"`
}

func (u *User) DocType() string { return KindUser }

func (u *User) Key() (string, error) {
	return u.Ref().Key()
}

func (u *User) Ref() UserRef {
	return NewUserRef(u.Name, u.SSN)
}

// NewUserFromRequest builds the user an approved onboarding request yields.
func NewUserFromRequest(req *OnboardingRequest) *User {
	return &User{
		Name:      req.Name,
		SSN:       req.SSN,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: req.CreatedAt,
		Balance:   0,
	}
}

// CanCredit reports whether amount can be added without overflow.
func (u *User) CanCredit(amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "credit amount must be positive")
	}
	if u.Balance > math.MaxInt64-amount {
		return dErrors.New(dErrors.CodeInternal, "balance would overflow")
	}
	return nil
}

// CanDebit reports whether amount can be taken from the balance.
func (u *User) CanDebit(amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "debit amount must be positive")
	}
	if u.Balance < amount {
		return dErrors.New(dErrors.CodeInsufficientFunds, "insufficient balance")
	}
	return nil
}

// Credit validates and applies a balance increase.
func (u *User) Credit(amount int64) error {
	if err := u.CanCredit(amount); err != nil {
		return err
	}
	u.Balance += amount
	return nil
}

// Debit validates and applies a balance decrease.
func (u *User) Debit(amount int64) error {
	if err := u.CanDebit(amount); err != nil {
		return err
	}
	u.Balance -= amount
	return nil
}
