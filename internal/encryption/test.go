package encryption

import (
	"bytes"
	"fmt"
	"io"

	"giftwise/internal/gw"
)

// testMagic marks output of the TestEncryptor.
var testMagic = []byte("GWTEST1\n")

// TestEncryptor is a reversible stand-in for tests. It prefixes plaintext
// with a marker instead of encrypting, and accepts only the passphrase it
// was set up with.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ gw.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor returns a TestEncryptor that is already configured with
// an empty passphrase.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (gw.DecryptionContext, error) {
	if passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestDecryptionContext strips the TestEncryptor marker.
type TestDecryptionContext struct{}

var _ gw.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	head := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(head, testMagic) {
		return fmt.Errorf("input was not produced by TestEncryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying: %w", err)
	}
	return nil
}
