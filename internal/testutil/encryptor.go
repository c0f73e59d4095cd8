package testutil

import (
	"giftwise/internal/encryption"
	"giftwise/internal/gw"
)

// NewTestEncryptor creates a deterministic, keyless encryptor for testing.
func NewTestEncryptor() gw.Encryptor {
	return encryption.NewTestEncryptor()
}
