package testutil

import (
	"giftwise/internal/gw"
	"giftwise/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() gw.Vault {
	return vault.NewMemoryVault("test-vault")
}
