// Package service provides tamper evidence for audit entries.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// AuditSigner signs and verifies audit entries.
type AuditSigner interface {
	// Sign returns the HMAC-SHA256 signature of entry under a key derived from rootKey.
	Sign(rootKey []byte, entry *auditDomain.Entry) ([]byte, error)

	// Verify returns ErrSignatureInvalid when entry.Signature does not match its content.
	Verify(rootKey []byte, entry *auditDomain.Entry) error
}

const signingKeyInfo = "audit-log-signing-v1"

type auditSigner struct{}

// NewAuditSigner creates an HMAC-SHA256 signer whose key is derived from the root key
// with HKDF-SHA256, so the master key itself never keys the MAC.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}

func (a *auditSigner) deriveSigningKey(rootKey []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, rootKey, nil, []byte(signingKeyInfo))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(r, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// canonicalize renders every signed field in a fixed order. Variable-length fields are
// length-prefixed so no two different entries share an encoding.
func (a *auditSigner) canonicalize(e *auditDomain.Entry) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, e.ID[:]...)
	for _, s := range []string{
		string(e.Action),
		e.CredentialID,
		e.ActorUserID,
		e.TargetUserID,
		e.VendorID,
		e.IPAddress,
		e.UserAgent,
		e.ErrorMessage,
	} {
		buf = appendLengthPrefixed(buf, []byte(s))
	}

	if e.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	// encoding/json sorts map keys, which keeps this deterministic.
	var ctxJSON []byte
	if e.Context != nil {
		var err error
		if ctxJSON, err = json.Marshal(e.Context); err != nil {
			return nil, fmt.Errorf("failed to marshal context: %w", err)
		}
	}
	buf = appendLengthPrefixed(buf, ctxJSON)

	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Timestamp.UnixNano()))
	return buf, nil
}

func appendLengthPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func (a *auditSigner) Sign(rootKey []byte, entry *auditDomain.Entry) ([]byte, error) {
	signingKey, err := a.deriveSigningKey(rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer cryptoDomain.SecureErase(signingKey)

	canonical, err := a.canonicalize(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize entry: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

func (a *auditSigner) Verify(rootKey []byte, entry *auditDomain.Entry) error {
	expected, err := a.Sign(rootKey, entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}
	if !hmac.Equal(entry.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
