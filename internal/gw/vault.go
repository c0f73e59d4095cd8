package gw

import "io"

// Vault provides an interface for backup storage backends.
// Backups are opaque blobs addressed by a slash-separated name.
type Vault interface {
	// Put stores the size bytes read from r under name, replacing any
	// existing blob with that name.
	Put(name string, r io.Reader, size int64) error

	// Get writes the blob stored under name to w.
	Get(name string, w io.Writer) error

	// List returns the names of all blobs under prefix, sorted.
	List(prefix string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}

// Encryptor handles encryption of backups and unlocking for decryption.
// Encryption uses the public key only, so scheduled backups need no user
// intervention. Decryption requires a passphrase to unlock the private key.
type Encryptor interface {
	// Setup performs one-time key generation. It generates a key pair, stores
	// the public key in plaintext, and encrypts the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase. It returns an
	// error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the duration
// of a restore.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
