package domain

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/credvault/internal/errors"
	appValidation "github.com/allisson/credvault/internal/validation"
)

// CreateInput carries everything needed to create a credential. ID is optional; the vault
// generates one when it is empty.
type CreateInput struct {
	ID        string
	UserID    string
	VendorID  string
	Type      Type
	Data      Data
	Label     string
	ExpiresAt *time.Time
	Custom    map[string]any
}

// Validate checks identifiers, the type tag, the data variant and custom metadata.
func (i CreateInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.UserID, validation.Required, validation.Length(1, 255),
			appValidation.NoWhitespace, appValidation.Identifier),
		validation.Field(&i.VendorID, validation.Required, validation.Length(1, 255),
			appValidation.NoWhitespace, appValidation.Identifier),
		validation.Field(&i.ID, validation.Length(0, 255), appValidation.NoWhitespace, appValidation.Identifier),
		validation.Field(&i.Label, validation.Length(0, 255)),
	)
	if err != nil {
		return appValidation.WrapValidationError(err)
	}
	if !i.Type.Valid() {
		return ErrInvalidCredentialType
	}
	if err := validateData(i.Data, i.Type); err != nil {
		return err
	}
	return ValidateCustomMetadata(i.Custom)
}

// UpdateInput describes a partial update. Nil fields are left unchanged. Supplying Data
// re-encrypts the credential; everything else only touches metadata.
type UpdateInput struct {
	Data           Data
	Label          *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	IsActive       *bool
	Custom         map[string]any
}

// Validate checks the update against the stored credential type.
func (i UpdateInput) Validate(t Type) error {
	if i.Data != nil {
		if err := validateData(i.Data, t); err != nil {
			return err
		}
	}
	if i.Label != nil && len(*i.Label) > 255 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "label: the length must be no more than 255")
	}
	if i.ExpiresAt != nil && i.ClearExpiresAt {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "expiresAt and clearExpiresAt are mutually exclusive")
	}
	return ValidateCustomMetadata(i.Custom)
}

// Empty reports whether the update changes nothing.
func (i UpdateInput) Empty() bool {
	return i.Data == nil && i.Label == nil && i.ExpiresAt == nil && !i.ClearExpiresAt &&
		i.IsActive == nil && i.Custom == nil
}

func validateData(d Data, t Type) error {
	if d == nil {
		return fmt.Errorf("%w: missing data", ErrInvalidCredentialData)
	}
	if d.CredentialType() != t {
		return fmt.Errorf("%w: data is %s, credential is %s", ErrInvalidCredentialData, d.CredentialType(), t)
	}
	return d.Validate()
}

// secretKeyMarkers are substrings of normalized custom metadata keys that indicate secret
// material. Keys are lowercased with separators removed before matching.
var secretKeyMarkers = []string{"password", "secret", "token", "apikey", "privatekey", "passphrase"}

var keySeparators = strings.NewReplacer("_", "", "-", "", " ", "", ".", "")

// ValidateCustomMetadata rejects custom metadata whose keys, at any nesting level, look like
// they carry secret material.
func ValidateCustomMetadata(custom map[string]any) error {
	for k, v := range custom {
		normalized := keySeparators.Replace(strings.ToLower(k))
		for _, marker := range secretKeyMarkers {
			if strings.Contains(normalized, marker) {
				return fmt.Errorf("%w: key %q", ErrSecretInMetadata, k)
			}
		}
		if err := validateCustomValue(v); err != nil {
			return err
		}
	}
	return nil
}

// validateCustomValue descends into objects and arrays, including arrays of arrays.
func validateCustomValue(v any) error {
	switch nested := v.(type) {
	case map[string]any:
		return ValidateCustomMetadata(nested)
	case []any:
		for _, item := range nested {
			if err := validateCustomValue(item); err != nil {
				return err
			}
		}
	case []map[string]any:
		for _, item := range nested {
			if err := ValidateCustomMetadata(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Query filters a credential listing. Zero values do not filter.
type Query struct {
	UserID         string
	VendorID       string
	Type           Type
	IsActive       *bool
	ExcludeExpired bool
	// Limit caps the number of results; zero means no cap.
	Limit  int
	Offset int
}

// Matches reports whether c passes every filter except pagination.
func (q Query) Matches(c *StoredCredential, now time.Time) bool {
	if q.UserID != "" && c.UserID != q.UserID {
		return false
	}
	if q.VendorID != "" && c.VendorID != q.VendorID {
		return false
	}
	if q.Type != "" && c.Type != q.Type {
		return false
	}
	if q.IsActive != nil && c.Metadata.IsActive != *q.IsActive {
		return false
	}
	if q.ExcludeExpired && c.Metadata.IsExpired(now) {
		return false
	}
	return true
}

// ReadOptions tunes a single-credential read.
type ReadOptions struct {
	// ExcludeExpired turns an expired credential into ErrCredentialExpired.
	ExcludeExpired bool
}

// RotationReport summarizes a bulk rotation.
type RotationReport struct {
	Rotated []string
	Failed  map[string]error
}
