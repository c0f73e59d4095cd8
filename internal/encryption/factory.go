package encryption

import (
	"fmt"

	"giftwise/internal/config"
	"giftwise/internal/gw"
)

// NewEncryptorFromConfig returns the encryptor named by cfg.Type. Type
// "none" yields a nil encryptor and backups are written in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (gw.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
