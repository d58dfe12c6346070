package handler

import (
	"time"

	"propreg/internal/registry/models"
)

type OnboardingRequestResponse struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	SSN       string    `json:"ssn"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserResponse struct {
	Name      string    `json:"name"`
	SSN       string    `json:"ssn"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

type OwnerResponse struct {
	Name string `json:"name"`
	SSN  string `json:"ssn"`
}

type ListingRequestResponse struct {
	PropertyID string        `json:"propertyId"`
	Owner      OwnerResponse `json:"owner"`
	Price      int64         `json:"price"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// PropertyResponse omits price once the property has been sold.
type PropertyResponse struct {
	PropertyID string        `json:"propertyId"`
	Owner      OwnerResponse `json:"owner"`
	Price      *int64        `json:"price,omitempty"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func fromOnboardingRequest(r *models.OnboardingRequest) *OnboardingRequestResponse {
	return &OnboardingRequestResponse{
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		SSN:       r.SSN,
		CreatedAt: r.CreatedAt,
	}
}

func fromUser(u *models.User) *UserResponse {
	return &UserResponse{
		Name:      u.Name,
		SSN:       u.SSN,
		Email:     u.Email,
		Phone:     u.Phone,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}

func fromOwner(ref models.UserRef) OwnerResponse {
	return OwnerResponse{Name: ref.Name, SSN: ref.SSN}
}

func fromListingRequest(r *models.ListingRequest) *ListingRequestResponse {
	return &ListingRequestResponse{
		PropertyID: r.PropertyID,
		Owner:      fromOwner(r.Owner),
		Price:      r.Price,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

func fromProperty(p *models.Property) *PropertyResponse {
	return &PropertyResponse{
		PropertyID: p.PropertyID,
		Owner:      fromOwner(p.Owner),
		Price:      p.Price,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
	}
}
