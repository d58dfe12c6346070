// Package property implements listing, approval, update and purchase of
// Property records. Like identity, operations are functions of the ledger.Tx
// they are handed: all reads and checks happen before the first write.
package property

import (
	"context"
	"fmt"

	"propreg/internal/ledger"
	"propreg/internal/registry/models"
	"propreg/internal/registry/records"
	dErrors "propreg/pkg/domain-errors"
)

// Service holds no ledger state.
type Service struct{}

func New() *Service {
	return &Service{}
}

// RequestListing records a pending registration owned by an existing user.
// The request stores a typed reference to the owner, not the owner's key.
func (s *Service) RequestListing(ctx context.Context, tx ledger.Tx, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.ListingRequest, error) {
	if err := models.ValidateIdentifier("propertyId", propertyID); err != nil {
		return nil, err
	}
	ownerRef := models.NewUserRef(ownerName, ownerSSN)
	if err := ownerRef.Validate(); err != nil {
		return nil, err
	}
	parsed, err := models.ParsePropertyStatus(status)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePrice(price); err != nil {
		return nil, err
	}

	owner, err := records.LoadUser(ctx, tx, ownerRef)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("owner %s not found", ownerName))
	}

	req := &models.ListingRequest{
		PropertyID: propertyID,
		Owner:      owner.Ref(),
		Price:      price,
		Status:     parsed,
		CreatedAt:  tx.TxTime(),
	}
	if err := records.Save(tx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store listing request")
	}
	return req, nil
}

// ApproveListing turns a pending request into a Property and consumes the
// request. Both writes commit together.
func (s *Service) ApproveListing(ctx context.Context, tx ledger.Tx, propertyID string) (*models.Property, error) {
	if err := models.ValidateIdentifier("propertyId", propertyID); err != nil {
		return nil, err
	}
	req, err := records.LoadListingRequest(ctx, tx, propertyID)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("listing request for %s not found", propertyID))
	}
	propertyKey, err := models.PropertyKey(propertyID)
	if err != nil {
		return nil, err
	}
	exists, err := records.Exists(ctx, tx, propertyKey)
	if err != nil {
		return nil, records.DomainError(err, "")
	}
	if exists {
		// a second approval would silently hand the property to a new owner
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "property %s is already registered", propertyID)
	}

	property := models.NewPropertyFromRequest(req)
	if err := records.Save(tx, property); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store property")
	}
	if err := records.Remove(tx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume listing request")
	}
	return property, nil
}

// GetProperty returns the Property record. It never writes.
func (s *Service) GetProperty(ctx context.Context, tx ledger.Tx, propertyID string) (*models.Property, error) {
	if err := models.ValidateIdentifier("propertyId", propertyID); err != nil {
		return nil, err
	}
	p, err := records.LoadProperty(ctx, tx, propertyID)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("property %s not found", propertyID))
	}
	return p, nil
}

// UpdateListing lets the owner change price and status. Ownership is
// checked by comparing references; the stored owner is carried over.
func (s *Service) UpdateListing(ctx context.Context, tx ledger.Tx, propertyID, ownerName, ownerSSN string, price int64, status string) (*models.Property, error) {
	if err := models.ValidateIdentifier("propertyId", propertyID); err != nil {
		return nil, err
	}
	callerRef := models.NewUserRef(ownerName, ownerSSN)
	if err := callerRef.Validate(); err != nil {
		return nil, err
	}
	parsed, err := models.ParsePropertyStatus(status)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePrice(price); err != nil {
		return nil, err
	}

	caller, err := records.LoadUser(ctx, tx, callerRef)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("owner %s not found", ownerName))
	}
	current, err := records.LoadProperty(ctx, tx, propertyID)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("property %s not found", propertyID))
	}
	if !current.IsOwnedBy(caller.Ref()) {
		return nil, dErrors.Newf(dErrors.CodePermissionDenied, "property %s does not belong to %s", propertyID, ownerName)
	}

	updated := &models.Property{
		PropertyID: propertyID,
		Owner:      current.Owner,
		Price:      &price,
		Status:     parsed,
		CreatedAt:  tx.TxTime(),
	}
	if err := records.Save(tx, updated); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store property")
	}
	return updated, nil
}
