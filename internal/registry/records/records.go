// Package records reads and writes registry documents through a ledger.Tx.
// Lookups return sentinel.ErrNotFound (wrapped) for absent keys; services
// decide which domain error a miss becomes.
package records

import (
	"context"
	"errors"
	"fmt"

	"propreg/internal/ledger"
	"propreg/internal/registry/models"
	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/platform/sentinel"
)

// Load reads the document under key into rec.
func Load(ctx context.Context, tx ledger.Tx, key string, rec models.Record) error {
	data, err := tx.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%s: %w", rec.DocType(), sentinel.ErrNotFound)
		}
		return fmt.Errorf("load %s: %w", rec.DocType(), err)
	}
	return models.Decode(data, rec)
}

// Exists reports whether key holds a document.
func Exists(ctx context.Context, tx ledger.Tx, key string) (bool, error) {
	_, err := tx.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save writes rec under its own key.
func Save(tx ledger.Tx, rec models.Record) error {
	key, err := rec.Key()
	if err != nil {
		return err
	}
	data, err := models.Encode(rec)
	if err != nil {
		return err
	}
	return tx.Put(key, data)
}

// Remove deletes rec's key.
func Remove(tx ledger.Tx, rec models.Record) error {
	key, err := rec.Key()
	if err != nil {
		return err
	}
	return tx.Delete(key)
}

func LoadOnboardingRequest(ctx context.Context, tx ledger.Tx, name, ssn string) (*models.OnboardingRequest, error) {
	key, err := models.OnboardingRequestKey(name, ssn)
	if err != nil {
		return nil, err
	}
	var req models.OnboardingRequest
	if err := Load(ctx, tx, key, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func LoadUser(ctx context.Context, tx ledger.Tx, ref models.UserRef) (*models.User, error) {
	key, err := ref.Key()
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := Load(ctx, tx, key, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func LoadListingRequest(ctx context.Context, tx ledger.Tx, propertyID string) (*models.ListingRequest, error) {
	key, err := models.ListingRequestKey(propertyID)
	if err != nil {
		return nil, err
	}
	var req models.ListingRequest
	if err := Load(ctx, tx, key, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func LoadProperty(ctx context.Context, tx ledger.Tx, propertyID string) (*models.Property, error) {
	key, err := models.PropertyKey(propertyID)
	if err != nil {
		return nil, err
	}
	var p models.Property
	if err := Load(ctx, tx, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DomainError translates a lookup failure into the registry's error taxonomy.
// notFound is the message used when the key is absent.
func DomainError(err error, notFound string) error {
	var coded *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "stored record has an unexpected kind")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger read aborted")
	case errors.As(err, &coded):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger read failed")
	}
}
