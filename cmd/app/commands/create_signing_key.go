package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/tokend/internal/keys"
)

// RunCreateSigningKey generates a new RSA private key for token signing
// and writes it as PKCS#8 PEM to the output path, or to the command
// writer when no path is given. The matching configuration lines are
// printed so the key can be wired into the environment.
//
// Security: wrap the PEM with a KMS keeper before deploying it, and set
// SIGNING_KEY_KMS_WRAPPED=true.
func RunCreateSigningKey(
	logger *slog.Logger,
	keyID string,
	bits int,
	outputPath string,
	io IOTuple,
) error {
	if bits < 2048 {
		return fmt.Errorf("key size must be at least 2048 bits, got: %d", bits)
	}

	logger.Info("generating signing key",
		slog.String("key_id", keyID),
		slog.Int("bits", bits),
	)

	key, err := keys.GenerateKey(bits)
	if err != nil {
		return err
	}

	pemData, err := keys.MarshalPrivateKeyPEM(key)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, _ = io.Writer.Write(pemData)
		return nil
	}

	// Private key material: owner read/write only.
	if err := os.WriteFile(outputPath, pemData, 0o600); err != nil {
		return fmt.Errorf("failed to write signing key file: %w", err)
	}

	_, _ = fmt.Fprintf(io.Writer, "Signing key written to %s\n\n", outputPath)
	_, _ = fmt.Fprintf(io.Writer, "SIGNING_KEY_ID=%q\n", keyID)
	_, _ = fmt.Fprintf(io.Writer, "SIGNING_KEY_PATH=%q\n", outputPath)

	logger.Info("signing key created successfully",
		slog.String("key_id", keyID),
		slog.String("path", outputPath),
	)

	return nil
}
