package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
)

// EncryptionService returns the AES-GCM engine built from the encryption settings.
func (c *Container) EncryptionService() (*cryptoService.EncryptionService, error) {
	if err := c.initEncryptionOnce(); err != nil {
		return nil, err
	}
	return c.encryptionService, nil
}

// KeyDerivation returns the key derivation hierarchy.
func (c *Container) KeyDerivation() (*cryptoService.KeyDerivationService, error) {
	if err := c.initEncryptionOnce(); err != nil {
		return nil, err
	}
	return c.keyDerivation, nil
}

// MasterKey returns the process master key. It is destroyed by Shutdown.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	err := c.initOnce(&c.masterKeyInit, "masterKey", func() error {
		var err error
		c.masterKey, err = c.initMasterKey()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.masterKey, nil
}

func (c *Container) initEncryptionOnce() error {
	return c.initOnce(&c.encryptionInit, "encryption", func() error {
		engine, err := cryptoService.NewEncryptionService(c.config.EncryptionConfig())
		if err != nil {
			return fmt.Errorf("invalid encryption configuration: %w", err)
		}
		c.encryptionService = engine
		c.keyDerivation = cryptoService.NewKeyDerivationService(engine)
		return nil
	})
}

func (c *Container) initMasterKey() (*cryptoDomain.MasterKey, error) {
	kdf, err := c.KeyDerivation()
	if err != nil {
		return nil, err
	}

	masterKey, err := cryptoService.LoadMasterKey(c.config.MasterKeySource(), kdf)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return masterKey, nil
}
