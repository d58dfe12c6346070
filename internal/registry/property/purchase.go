package property

import (
	"context"
	"fmt"

	"propreg/internal/ledger"
	"propreg/internal/registry/models"
	"propreg/internal/registry/records"
	dErrors "propreg/pkg/domain-errors"
)

// Purchase settles the sale of a property to a buyer.
//
// Checks, first failure wins:
//  1. buyer exists (NotFound)
//  2. property exists (NotFound)
//  3. the recorded owner exists (NotFound; the owner reference is dangling)
//  4. property is on sale (InvalidState)
//  5. buyer can afford the price (InsufficientFunds)
//
// On success the buyer is debited, the seller credited and the property
// re-registered to the buyer without a price. The three writes are issued
// only after every read and check, and commit as one unit.
func (s *Service) Purchase(ctx context.Context, tx ledger.Tx, propertyID, buyerName, buyerSSN string) (*models.Property, error) {
	if err := models.ValidateIdentifier("propertyId", propertyID); err != nil {
		return nil, err
	}
	buyerRef := models.NewUserRef(buyerName, buyerSSN)
	if err := buyerRef.Validate(); err != nil {
		return nil, err
	}

	buyer, err := records.LoadUser(ctx, tx, buyerRef)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("buyer %s not found", buyerName))
	}
	property, err := records.LoadProperty(ctx, tx, propertyID)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("property %s not found", propertyID))
	}
	seller, err := records.LoadUser(ctx, tx, property.Owner)
	if err != nil {
		return nil, records.DomainError(err, fmt.Sprintf("owner of property %s not found", propertyID))
	}

	settlement, err := models.Settle(buyer, seller, property, tx.TxTime())
	if err != nil {
		return nil, err
	}

	for _, rec := range []models.Record{settlement.Property, settlement.Buyer, settlement.Seller} {
		if err := records.Save(tx, rec); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store settlement")
		}
	}
	return settlement.Property, nil
}
