package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// DefaultRotationConcurrency bounds RotateUser when no concurrency is configured.
const DefaultRotationConcurrency = 4

// credentialUseCase implements CredentialUseCase.
type credentialUseCase struct {
	auditor
	storage             StorageBackend
	engine              cryptoService.EncryptionEngine
	kdf                 cryptoService.KeyDerivation
	masterKey           *cryptoDomain.MasterKey
	keyIterations       int
	rotationConcurrency int
	now                 func() time.Time
}

// Create encrypts the credential data under a freshly derived key and stores the record.
func (c *credentialUseCase) Create(
	ctx context.Context,
	input credentialDomain.CreateInput,
) (*credentialDomain.StoredCredential, error) {
	ev := &auditEvent{
		action:       auditDomain.ActionCredentialCreated,
		userID:       input.UserID,
		credentialID: input.ID,
		vendorID:     input.VendorID,
	}
	ev.set("type", string(input.Type))

	cred, err := c.create(ctx, input, ev)
	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *credentialUseCase) create(
	ctx context.Context,
	input credentialDomain.CreateInput,
	ev *auditEvent,
) (*credentialDomain.StoredCredential, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		var err error
		if id, err = c.engine.GenerateID(0); err != nil {
			return nil, apperrors.Wrap(err, "failed to generate credential id")
		}
	} else {
		exists, err := c.storage.Exists(ctx, id)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to check credential")
		}
		if exists {
			return nil, credentialDomain.ErrCredentialAlreadyExists
		}
	}
	ev.credentialID = id

	salt, err := c.engine.GenerateSalt(0)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate salt")
	}

	now := c.now().UTC()
	cred := &credentialDomain.StoredCredential{
		ID:                id,
		UserID:            input.UserID,
		VendorID:          input.VendorID,
		Type:              input.Type,
		EncryptionVersion: credentialDomain.CurrentEncryptionVersion,
		KeyIterations:     c.keyIterations,
		Salt:              salt,
		Metadata: credentialDomain.Metadata{
			Label:     input.Label,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: input.ExpiresAt,
			IsActive:  true,
			Custom:    maps.Clone(input.Custom),
		},
	}

	payload, err := c.seal(cred, input.Data, salt, cred.EncryptionVersion)
	if err != nil {
		return nil, err
	}
	cred.SetPayload(payload, salt)

	if err := c.storage.Write(ctx, cred); err != nil {
		return nil, apperrors.Wrap(err, "failed to write credential")
	}
	return cred, nil
}

// Read decrypts a credential and records the access in its metadata.
func (c *credentialUseCase) Read(
	ctx context.Context,
	userID, credentialID string,
	opts credentialDomain.ReadOptions,
) (*credentialDomain.DecryptedCredential, error) {
	ev := &auditEvent{action: auditDomain.ActionCredentialAccessed, userID: userID, credentialID: credentialID}

	decrypted, err := c.read(ctx, userID, credentialID, opts, ev)
	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return decrypted, nil
}

func (c *credentialUseCase) read(
	ctx context.Context,
	userID, credentialID string,
	opts credentialDomain.ReadOptions,
	ev *auditEvent,
) (*credentialDomain.DecryptedCredential, error) {
	cred, err := c.load(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}
	ev.vendorID = cred.VendorID

	now := c.now().UTC()
	if opts.ExcludeExpired && cred.Metadata.IsExpired(now) {
		return nil, credentialDomain.ErrCredentialExpired
	}

	data, err := c.open(cred)
	if err != nil {
		return nil, err
	}

	cred.Metadata.AccessCount++
	cred.Metadata.LastAccessedAt = &now
	if err := c.storage.Write(ctx, cred); err != nil {
		return nil, apperrors.Wrap(err, "failed to record credential access")
	}

	return &credentialDomain.DecryptedCredential{
		ID:       cred.ID,
		UserID:   cred.UserID,
		VendorID: cred.VendorID,
		Type:     cred.Type,
		Data:     data,
		Metadata: cred.Metadata,
	}, nil
}

// Update applies a partial update. New data is re-encrypted with a new IV under the
// record's current salt and version; metadata-only updates leave the ciphertext untouched.
func (c *credentialUseCase) Update(
	ctx context.Context,
	userID, credentialID string,
	input credentialDomain.UpdateInput,
) (*credentialDomain.StoredCredential, error) {
	ev := &auditEvent{action: auditDomain.ActionCredentialUpdated, userID: userID, credentialID: credentialID}

	cred, err := c.update(ctx, userID, credentialID, input, ev)
	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *credentialUseCase) update(
	ctx context.Context,
	userID, credentialID string,
	input credentialDomain.UpdateInput,
	ev *auditEvent,
) (*credentialDomain.StoredCredential, error) {
	cred, err := c.load(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}
	ev.vendorID = cred.VendorID

	if err := input.Validate(cred.Type); err != nil {
		return nil, err
	}

	fields := make([]string, 0)
	if input.Data != nil {
		payload, err := c.seal(cred, input.Data, cred.Salt, cred.EncryptionVersion)
		if err != nil {
			return nil, err
		}
		cred.SetPayload(payload, cred.Salt)
		fields = append(fields, "data")
	}
	if input.Label != nil {
		cred.Metadata.Label = *input.Label
		fields = append(fields, "label")
	}
	if input.ExpiresAt != nil {
		expiresAt := input.ExpiresAt.UTC()
		cred.Metadata.ExpiresAt = &expiresAt
		fields = append(fields, "expiresAt")
	}
	if input.ClearExpiresAt {
		cred.Metadata.ExpiresAt = nil
		fields = append(fields, "expiresAt")
	}
	if input.IsActive != nil {
		cred.Metadata.IsActive = *input.IsActive
		fields = append(fields, "isActive")
	}
	if input.Custom != nil {
		cred.Metadata.Custom = maps.Clone(input.Custom)
		fields = append(fields, "custom")
	}
	ev.set("fields", fields)

	cred.Metadata.UpdatedAt = c.now().UTC()
	if err := c.storage.Write(ctx, cred); err != nil {
		return nil, apperrors.Wrap(err, "failed to write credential")
	}
	return cred, nil
}

// Delete removes the credential. A missing record, or one owned by another user, is
// reported as not existing.
func (c *credentialUseCase) Delete(ctx context.Context, userID, credentialID string) (bool, error) {
	ev := &auditEvent{action: auditDomain.ActionCredentialDeleted, userID: userID, credentialID: credentialID}

	existed, err := c.delete(ctx, userID, credentialID, ev)
	ev.set("existed", existed)
	if err := c.record(ctx, ev, err); err != nil {
		return false, err
	}
	return existed, nil
}

func (c *credentialUseCase) delete(ctx context.Context, userID, credentialID string, ev *auditEvent) (bool, error) {
	cred, err := c.load(ctx, userID, credentialID)
	if apperrors.Is(err, credentialDomain.ErrCredentialNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ev.vendorID = cred.VendorID

	existed, err := c.storage.Delete(ctx, credentialID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete credential")
	}
	return existed, nil
}

// Deactivate marks an active credential inactive.
func (c *credentialUseCase) Deactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	return c.setActive(ctx, userID, credentialID, false, auditDomain.ActionCredentialDeactivated)
}

// Reactivate marks an inactive credential active.
func (c *credentialUseCase) Reactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	return c.setActive(ctx, userID, credentialID, true, auditDomain.ActionCredentialReactivated)
}

func (c *credentialUseCase) setActive(
	ctx context.Context,
	userID, credentialID string,
	active bool,
	action auditDomain.Action,
) (*credentialDomain.StoredCredential, error) {
	ev := &auditEvent{action: action, userID: userID, credentialID: credentialID}

	cred, err := func() (*credentialDomain.StoredCredential, error) {
		cred, err := c.load(ctx, userID, credentialID)
		if err != nil {
			return nil, err
		}
		ev.vendorID = cred.VendorID

		if cred.Metadata.IsActive == active {
			return nil, credentialDomain.ErrInvalidStateTransition
		}
		cred.Metadata.IsActive = active
		cred.Metadata.UpdatedAt = c.now().UTC()

		if err := c.storage.Write(ctx, cred); err != nil {
			return nil, apperrors.Wrap(err, "failed to write credential")
		}
		return cred, nil
	}()

	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return cred, nil
}

// Rotate re-encrypts the credential under the key of the next encryption version with a
// new salt. The stored record is replaced in a single write, so a failure at any step
// leaves it untouched.
func (c *credentialUseCase) Rotate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	ev := &auditEvent{action: auditDomain.ActionCredentialRotated, userID: userID, credentialID: credentialID}

	cred, err := c.rotate(ctx, userID, credentialID, ev)
	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *credentialUseCase) rotate(
	ctx context.Context,
	userID, credentialID string,
	ev *auditEvent,
) (*credentialDomain.StoredCredential, error) {
	current, err := c.load(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}
	ev.vendorID = current.VendorID

	fromVersion := current.EncryptionVersion
	toVersion := fromVersion + 1
	ev.set("fromVersion", fromVersion)
	ev.set("toVersion", toVersion)

	plaintext, err := c.openRaw(current)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.SecureErase(plaintext)

	if _, err := credentialDomain.UnmarshalData(plaintext, current.Type); err != nil {
		return nil, err
	}

	salt, err := c.engine.GenerateSalt(0)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate salt")
	}

	newKey, err := c.kdf.DeriveRecordKey(c.masterKey, userID, credentialID, salt, c.keyIterations, toVersion)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.SecureErase(newKey)

	payload, err := c.engine.Encrypt(plaintext, newKey)
	if err != nil {
		return nil, err
	}

	if err := c.verifyRotation(userID, credentialID, salt, toVersion, newKey, payload, plaintext); err != nil {
		return nil, err
	}

	next := current.Clone()
	next.SetPayload(payload, salt)
	next.EncryptionVersion = toVersion
	next.KeyIterations = c.keyIterations
	next.Metadata.UpdatedAt = c.now().UTC()

	if err := c.storage.Write(ctx, next); err != nil {
		return nil, apperrors.Wrap(err, "failed to write rotated credential")
	}
	return next, nil
}

// verifyRotation re-derives the new key from the persisted parameters and checks that it
// reproduces the key and decrypts the new payload back to the original plaintext.
func (c *credentialUseCase) verifyRotation(
	userID, credentialID string,
	salt []byte,
	version int,
	newKey []byte,
	payload cryptoDomain.EncryptedPayload,
	plaintext []byte,
) error {
	check, err := c.kdf.DeriveRecordKey(c.masterKey, userID, credentialID, salt, c.keyIterations, version)
	if err != nil {
		return err
	}
	defer cryptoDomain.SecureErase(check)

	if !c.kdf.VerifyDerivedKey(check, newKey) {
		return credentialDomain.ErrRotationVerificationFailed
	}

	roundTrip, err := c.engine.Decrypt(payload, check)
	if err != nil {
		return fmt.Errorf("%w: %v", credentialDomain.ErrRotationVerificationFailed, err)
	}
	defer cryptoDomain.SecureErase(roundTrip)

	if !cryptoService.ConstantTimeEqual(roundTrip, plaintext) {
		return credentialDomain.ErrRotationVerificationFailed
	}
	return nil
}

// RotateUser rotates every credential of userID with bounded concurrency.
func (c *credentialUseCase) RotateUser(ctx context.Context, userID string) (*credentialDomain.RotationReport, error) {
	creds, err := c.storage.List(ctx, credentialDomain.Query{UserID: userID})
	if err != nil {
		ev := &auditEvent{action: auditDomain.ActionCredentialRotated, userID: userID}
		return nil, c.record(ctx, ev, apperrors.Wrap(err, "failed to list credentials"))
	}

	report := &credentialDomain.RotationReport{
		Rotated: make([]string, 0, len(creds)),
		Failed:  make(map[string]error),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.rotationConcurrency)

	for _, cred := range creds {
		g.Go(func() error {
			_, err := c.Rotate(ctx, userID, cred.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[cred.ID] = err
				return nil
			}
			report.Rotated = append(report.Rotated, cred.ID)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(report.Rotated)
	return report, nil
}

// List returns summaries of the matching credentials. Nothing is decrypted.
func (c *credentialUseCase) List(
	ctx context.Context,
	query credentialDomain.Query,
) ([]*credentialDomain.Summary, error) {
	ev := &auditEvent{
		action:   auditDomain.ActionCredentialListed,
		userID:   query.UserID,
		vendorID: query.VendorID,
	}

	summaries, err := func() ([]*credentialDomain.Summary, error) {
		creds, err := c.storage.List(ctx, query)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list credentials")
		}

		summaries := make([]*credentialDomain.Summary, 0, len(creds))
		for _, cred := range creds {
			summaries = append(summaries, cred.Summary())
		}
		return summaries, nil
	}()
	ev.set("count", len(summaries))

	if err := c.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return summaries, nil
}

// DeactivateExpired deactivates every active credential whose expiry has passed. Each
// deactivation is audited on its own; failures are joined into the returned error.
func (c *credentialUseCase) DeactivateExpired(ctx context.Context) (int, error) {
	active := true
	creds, err := c.storage.List(ctx, credentialDomain.Query{IsActive: &active})
	if err != nil {
		ev := &auditEvent{action: auditDomain.ActionCredentialDeactivated}
		ev.set("reason", "expired")
		return 0, c.record(ctx, ev, apperrors.Wrap(err, "failed to list credentials"))
	}

	now := c.now().UTC()
	count := 0
	var errs []error
	for _, cred := range creds {
		if !cred.Metadata.IsExpired(now) {
			continue
		}
		if _, err := c.Deactivate(ctx, cred.UserID, cred.ID); err != nil {
			errs = append(errs, fmt.Errorf("credential %s: %w", cred.ID, err))
			continue
		}
		count++
	}

	if count > 0 {
		c.logger.Info("deactivated expired credentials", slog.Int("count", count))
	}
	return count, apperrors.Join(errs...)
}

// load reads a record and enforces ownership.
func (c *credentialUseCase) load(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	cred, err := c.storage.Read(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.UserID != userID {
		return nil, credentialDomain.ErrCredentialNotFound
	}
	return cred, nil
}

// seal encrypts data under the record key for salt and version.
func (c *credentialUseCase) seal(
	cred *credentialDomain.StoredCredential,
	data credentialDomain.Data,
	salt []byte,
	version int,
) (cryptoDomain.EncryptedPayload, error) {
	plaintext, err := credentialDomain.MarshalData(data)
	if err != nil {
		return cryptoDomain.EncryptedPayload{}, err
	}
	defer cryptoDomain.SecureErase(plaintext)

	key, err := c.kdf.DeriveRecordKey(c.masterKey, cred.UserID, cred.ID, salt, cred.KeyIterations, version)
	if err != nil {
		return cryptoDomain.EncryptedPayload{}, err
	}
	defer cryptoDomain.SecureErase(key)

	return c.engine.Encrypt(plaintext, key)
}

// openRaw decrypts a record with the key reproduced from its persisted parameters. The
// caller owns the returned plaintext and must erase it.
func (c *credentialUseCase) openRaw(cred *credentialDomain.StoredCredential) ([]byte, error) {
	key, err := c.kdf.DeriveRecordKey(
		c.masterKey,
		cred.UserID,
		cred.ID,
		cred.Salt,
		cred.KeyIterations,
		cred.EncryptionVersion,
	)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.SecureErase(key)

	return c.engine.Decrypt(cred.Payload(), key)
}

// open decrypts a record and decodes its data, rejecting a type tag that does not match
// the record type.
func (c *credentialUseCase) open(cred *credentialDomain.StoredCredential) (credentialDomain.Data, error) {
	plaintext, err := c.openRaw(cred)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.SecureErase(plaintext)

	return credentialDomain.UnmarshalData(plaintext, cred.Type)
}

// NewCredentialUseCase creates the vault. keyIterations is the PBKDF2 iteration count for
// new keys; rotationConcurrency bounds RotateUser.
func NewCredentialUseCase(
	storage StorageBackend,
	audit AuditLogger,
	engine cryptoService.EncryptionEngine,
	kdf cryptoService.KeyDerivation,
	masterKey *cryptoDomain.MasterKey,
	keyIterations int,
	rotationConcurrency int,
	logger *slog.Logger,
) CredentialUseCase {
	if keyIterations <= 0 {
		keyIterations = cryptoDomain.DefaultPBKDF2Iterations
	}
	if rotationConcurrency <= 0 {
		rotationConcurrency = DefaultRotationConcurrency
	}
	return &credentialUseCase{
		auditor:             auditor{audit: audit, logger: logger},
		storage:             storage,
		engine:              engine,
		kdf:                 kdf,
		masterKey:           masterKey,
		keyIterations:       keyIterations,
		rotationConcurrency: rotationConcurrency,
		now:                 time.Now,
	}
}
