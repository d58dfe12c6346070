package models

import (
	"unicode"

	"propreg/internal/ledger"
	dErrors "propreg/pkg/domain-errors"
)

// Record kinds. Each kind is its own key namespace and is also written into
// every stored document as docType, so a key always resolves to one kind.
const (
	KindOnboardingRequest = "OnboardingRequest"
	KindUser              = "User"
	KindListingRequest    = "ListingRequest"
	KindProperty          = "Property"
)

// UserRef is a typed reference to a User record. It is what a Property
// stores as its owner; the storage key is derived from it, never stored.
type UserRef struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	SSN  string `json:"ssn"`
}

func NewUserRef(name, ssn string) UserRef {
	return UserRef{Kind: KindUser, Name: name, SSN: ssn}
}

// Key resolves the reference to the User record's storage key.
func (r UserRef) Key() (string, error) {
	if r.Kind != KindUser {
		return "", dErrors.Newf(dErrors.CodeInvalidState, "reference of kind %q does not point at a user", r.Kind)
	}
	return userKey(r.Name, r.SSN)
}

// Validate checks that the reference identifies a user.
func (r UserRef) Validate() error {
	if err := ValidateIdentifier("name", r.Name); err != nil {
		return err
	}
	return ValidateIdentifier("ssn", r.SSN)
}

func OnboardingRequestKey(name, ssn string) (string, error) {
	return compositeKey(KindOnboardingRequest, name, ssn)
}

func ListingRequestKey(propertyID string) (string, error) {
	return compositeKey(KindListingRequest, propertyID)
}

func PropertyKey(propertyID string) (string, error) {
	return compositeKey(KindProperty, propertyID)
}

func userKey(name, ssn string) (string, error) {
	return compositeKey(KindUser, name, ssn)
}

func compositeKey(kind string, parts ...string) (string, error) {
	key, err := ledger.CompositeKey(kind, parts...)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidArgument, "invalid key component")
	}
	return key, nil
}

// ValidateIdentifier rejects empty identifiers and identifiers containing
// control characters, which are reserved by the key encoding.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "%s is required", field)
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return dErrors.Newf(dErrors.CodeInvalidArgument, "%s must not contain control characters", field)
		}
	}
	return nil
}
