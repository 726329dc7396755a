package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
)

// masterKeySaltLength is the length of the salt generated for passphrase-protected keys.
const masterKeySaltLength = 32

// RunCreateMasterKey generates a 32-byte master key and prints the environment variables
// that load it.
//
// Without a passphrase the key is printed as MASTER_KEY. With one, the key is wrapped under a
// key derived from the passphrase and a fresh salt, and MASTER_KEY_SALT, MASTER_KEY_WRAPPED and
// MASTER_KEY_PBKDF2_ITERATIONS are printed instead; the passphrase itself is never echoed.
// Key material is erased after encoding.
func RunCreateMasterKey(
	engine cryptoService.EncryptionEngine,
	kdf cryptoService.KeyDerivation,
	logger *slog.Logger,
	writer io.Writer,
	passphrase string,
	iterations int,
) error {
	masterKey, err := engine.GenerateKey(256)
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.SecureErase(masterKey)

	if passphrase == "" {
		logger.Info("generated raw master key")

		_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy this environment variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	if iterations <= 0 {
		iterations = cryptoDomain.DefaultMasterKeyIterations
	}

	salt, err := engine.GenerateSalt(masterKeySaltLength)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	pass := []byte(passphrase)
	defer cryptoDomain.SecureErase(pass)

	kek, err := kdf.MasterKeyFromPassword(pass, salt, iterations)
	if err != nil {
		return fmt.Errorf("failed to derive key from passphrase: %w", err)
	}
	defer cryptoDomain.SecureErase(kek)

	wrapped, err := kdf.WrapKey(masterKey, kek)
	if err != nil {
		return fmt.Errorf("failed to wrap master key: %w", err)
	}

	logger.Info("generated passphrase-wrapped master key", slog.Int("iterations", iterations))

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration (passphrase mode)")
	_, _ = fmt.Fprintln(writer, "# Set MASTER_KEY_PASSPHRASE to the passphrase used here; it is not printed")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "MASTER_KEY_SALT=\"%s\"\n", base64.StdEncoding.EncodeToString(salt))
	_, _ = fmt.Fprintf(writer, "MASTER_KEY_WRAPPED=\"%s\"\n", wrapped.String())
	_, _ = fmt.Fprintf(writer, "MASTER_KEY_PBKDF2_ITERATIONS=\"%d\"\n", iterations)
	return nil
}
