package domain

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/credvault/internal/validation"
)

// Data is the plaintext payload of a credential. It is a closed sum type: APIKey,
// OAuthToken, Secret and Certificate are the only implementations.
type Data interface {
	// CredentialType returns the variant tag.
	CredentialType() Type
	// Validate checks the variant's required fields.
	Validate() error

	sealed()
}

// APIKey is an API key, optionally paired with a secret.
type APIKey struct {
	APIKey            string            `json:"apiKey"`
	APISecret         string            `json:"apiSecret,omitempty"`
	AdditionalHeaders map[string]string `json:"additionalHeaders,omitempty"`
}

// OAuthToken is an OAuth access token with optional refresh token.
type OAuthToken struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	TokenType    string     `json:"tokenType"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Scope        []string   `json:"scope,omitempty"`
}

// Secret is a generic secret value with optional extra fields.
type Secret struct {
	Value            string            `json:"value"`
	AdditionalFields map[string]string `json:"additionalFields,omitempty"`
}

// Certificate is a PEM certificate with optional private key and passphrase.
type Certificate struct {
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"privateKey,omitempty"`
	Passphrase  string `json:"passphrase,omitempty"`
}

func (APIKey) CredentialType() Type      { return TypeAPIKey }
func (OAuthToken) CredentialType() Type  { return TypeOAuthToken }
func (Secret) CredentialType() Type      { return TypeSecret }
func (Certificate) CredentialType() Type { return TypeCertificate }

func (APIKey) sealed()      {}
func (OAuthToken) sealed()  {}
func (Secret) sealed()      {}
func (Certificate) sealed() {}

// Validate requires a non-blank API key.
func (d APIKey) Validate() error {
	return wrapDataError(validation.ValidateStruct(&d,
		validation.Field(&d.APIKey, validation.Required, appValidation.NotBlank),
	))
}

// Validate requires an access token and a token type.
func (d OAuthToken) Validate() error {
	return wrapDataError(validation.ValidateStruct(&d,
		validation.Field(&d.AccessToken, validation.Required, appValidation.NotBlank),
		validation.Field(&d.TokenType, validation.Required, appValidation.NotBlank),
	))
}

// Validate requires a non-blank value.
func (d Secret) Validate() error {
	return wrapDataError(validation.ValidateStruct(&d,
		validation.Field(&d.Value, validation.Required, appValidation.NotBlank),
	))
}

// Validate requires a non-blank certificate.
func (d Certificate) Validate() error {
	return wrapDataError(validation.ValidateStruct(&d,
		validation.Field(&d.Certificate, validation.Required, appValidation.NotBlank),
	))
}

func wrapDataError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentialData, err)
}

// envelope is the plaintext that gets encrypted: the variant tag travels with the data so
// a decrypted payload can be checked against the record's declared type.
type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalData encodes d into the tagged plaintext envelope. The caller owns the returned
// buffer and should erase it once encrypted.
func MarshalData(d Data) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidCredentialData)
	}
	inner, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential data: %w", err)
	}
	return json.Marshal(envelope{Type: d.CredentialType(), Data: inner})
}

// UnmarshalData decodes a plaintext envelope and checks its tag against expected.
func UnmarshalData(b []byte, expected Type) (Data, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, ErrCredentialTypeMismatch
	}
	if env.Type != expected {
		return nil, ErrCredentialTypeMismatch
	}

	var (
		d   Data
		err error
	)
	switch env.Type {
	case TypeAPIKey:
		var v APIKey
		err = json.Unmarshal(env.Data, &v)
		d = v
	case TypeOAuthToken:
		var v OAuthToken
		err = json.Unmarshal(env.Data, &v)
		d = v
	case TypeSecret:
		var v Secret
		err = json.Unmarshal(env.Data, &v)
		d = v
	case TypeCertificate:
		var v Certificate
		err = json.Unmarshal(env.Data, &v)
		d = v
	default:
		return nil, ErrCredentialTypeMismatch
	}
	if err != nil {
		return nil, ErrCredentialTypeMismatch
	}
	return d, nil
}

// DecodeDataJSON parses caller-supplied JSON for a credential of type t, as used by the CLI.
func DecodeDataJSON(t Type, raw []byte) (Data, error) {
	if !t.Valid() {
		return nil, ErrInvalidCredentialType
	}
	env, err := json.Marshal(envelope{Type: t, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialData, err)
	}
	d, err := UnmarshalData(env, t)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s payload", ErrInvalidCredentialData, t)
	}
	return d, d.Validate()
}
