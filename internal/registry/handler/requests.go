package handler

import (
	dErrors "propreg/pkg/domain-errors"
)

// Identifier content is checked by the registry services; requests only
// check that required fields were sent.

// OnboardingRequest is the body of POST /v1/onboarding-requests.
type OnboardingRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	SSN   string `json:"ssn"`
}

func (r *OnboardingRequest) Validate() error {
	return required(field{"name", r.Name}, field{"ssn", r.SSN})
}

// UserRequest identifies a user: POST /v1/admin/onboarding-approvals.
type UserRequest struct {
	Name string `json:"name"`
	SSN  string `json:"ssn"`
}

func (r *UserRequest) Validate() error {
	return required(field{"name", r.Name}, field{"ssn", r.SSN})
}

// RechargeRequest is the body of POST /v1/recharges.
type RechargeRequest struct {
	Name    string `json:"name"`
	SSN     string `json:"ssn"`
	Voucher string `json:"voucher"`
}

func (r *RechargeRequest) Validate() error {
	return required(field{"name", r.Name}, field{"ssn", r.SSN}, field{"voucher", r.Voucher})
}

// ListingRequest is the body of POST /v1/listing-requests.
type ListingRequest struct {
	PropertyID string `json:"propertyId"`
	OwnerName  string `json:"ownerName"`
	OwnerSSN   string `json:"ownerSsn"`
	Price      *int64 `json:"price"`
	Status     string `json:"status"`
}

func (r *ListingRequest) Validate() error {
	if err := required(field{"propertyId", r.PropertyID}, field{"ownerName", r.OwnerName}, field{"ownerSsn", r.OwnerSSN}, field{"status", r.Status}); err != nil {
		return err
	}
	if r.Price == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "price is required")
	}
	return nil
}

// UpdateListingRequest is the body of PUT /v1/properties/{propertyID}. The
// caller identifies themselves as the owner.
type UpdateListingRequest struct {
	OwnerName string `json:"ownerName"`
	OwnerSSN  string `json:"ownerSsn"`
	Price     *int64 `json:"price"`
	Status    string `json:"status"`
}

func (r *UpdateListingRequest) Validate() error {
	if err := required(field{"ownerName", r.OwnerName}, field{"ownerSsn", r.OwnerSSN}, field{"status", r.Status}); err != nil {
		return err
	}
	if r.Price == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "price is required")
	}
	return nil
}

// PurchaseRequest is the body of POST /v1/properties/{propertyID}/purchase.
type PurchaseRequest struct {
	BuyerName string `json:"buyerName"`
	BuyerSSN  string `json:"buyerSsn"`
}

func (r *PurchaseRequest) Validate() error {
	return required(field{"buyerName", r.BuyerName}, field{"buyerSsn", r.BuyerSSN})
}

type field struct {
	name  string
	value string
}

func required(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return dErrors.Newf(dErrors.CodeInvalidArgument, "%s is required", f.name)
		}
	}
	return nil
}
