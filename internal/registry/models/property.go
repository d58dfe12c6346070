package models

import (
	"time"

	dErrors "propreg/pkg/domain-errors"
)

// PropertyStatus is the sale state of a property.
type PropertyStatus string

const (
	StatusOnSale     PropertyStatus = "onSale"
	StatusRegistered PropertyStatus = "registered"
)

func (s PropertyStatus) Valid() bool {
	return s == StatusOnSale || s == StatusRegistered
}

// ParsePropertyStatus validates a caller-supplied status.
func ParsePropertyStatus(raw string) (PropertyStatus, error) {
	s := PropertyStatus(raw)
	if !s.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidArgument, "status must be %q or %q", StatusOnSale, StatusRegistered)
	}
	return s, nil
}

// ValidatePrice rejects non-positive prices.
func ValidatePrice(price int64) error {
	if price <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "price must be positive")
	}
	return nil
}

// ListingRequest is a pending property registration awaiting approval.
type ListingRequest struct {
	PropertyID string         `json:"propertyId"`
	Owner      UserRef        `json:"owner"`
	Price      int64          `json:"price"`
	Status     PropertyStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (r *ListingRequest) DocType() string { return KindListingRequest }

func (r *ListingRequest) Key() (string, error) {
	return ListingRequestKey(r.PropertyID)
}

// Property is a registered property.
//
// Invariants:
//   - Owner always references an existing User
//   - Price is nil once the property has been sold; a settled property
//     does not carry its sale price
type Property struct {
	PropertyID string         `json:"propertyId"`
	Owner      UserRef        `json:"owner"`
	Price      *int64         `json:"price,omitempty"`
	Status     PropertyStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (p *Property) DocType() string { return KindProperty }

func (p *Property) Key() (string, error) {
	return PropertyKey(p.PropertyID)
}

// NewPropertyFromRequest builds the property an approved listing yields.
func NewPropertyFromRequest(req *ListingRequest) *Property {
	price := req.Price
	return &Property{
		PropertyID: req.PropertyID,
		Owner:      req.Owner,
		Price:      &price,
		Status:     req.Status,
		CreatedAt:  req.CreatedAt,
	}
}

// IsOwnedBy reports whether ref is the recorded owner.
func (p *Property) IsOwnedBy(ref UserRef) bool {
	return p.Owner == ref
}

// CanPurchase checks the property side of a sale: it must be on sale and
// priced. Returns the price.
func (p *Property) CanPurchase() (int64, error) {
	if p.Status != StatusOnSale {
		return 0, dErrors.Newf(dErrors.CodeInvalidState, "property %s is not on sale", p.PropertyID)
	}
	if p.Price == nil || *p.Price <= 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidState, "property %s has no valid price", p.PropertyID)
	}
	return *p.Price, nil
}

// Settlement is the complete result of a sale: the three records that must
// be written together.
type Settlement struct {
	Buyer    *User
	Seller   *User
	Property *Property
}

// Settle computes the post-sale state without touching its inputs. Checks
// run in a fixed order: property state, buyer funds, self-purchase, then
// seller overflow.
func Settle(buyer, seller *User, property *Property, at time.Time) (*Settlement, error) {
	price, err := property.CanPurchase()
	if err != nil {
		return nil, err
	}
	if err := buyer.CanDebit(price); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInsufficientFunds,
			"balance %d is below price %d of property %s", buyer.Balance, price, property.PropertyID)
	}
	if property.IsOwnedBy(buyer.Ref()) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "buyer already owns property %s", property.PropertyID)
	}
	if err := seller.CanCredit(price); err != nil {
		return nil, err
	}

	newBuyer := *buyer
	newSeller := *seller
	if err := newBuyer.Debit(price); err != nil {
		return nil, err
	}
	if err := newSeller.Credit(price); err != nil {
		return nil, err
	}

	return &Settlement{
		Buyer:  &newBuyer,
		Seller: &newSeller,
		Property: &Property{
			PropertyID: property.PropertyID,
			Owner:      buyer.Ref(),
			Status:     StatusRegistered,
			CreatedAt:  at,
		},
	}, nil
}
