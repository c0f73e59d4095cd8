package gw

import (
	"bytes"
	"fmt"
	"strings"
)

const encryptedSuffix = ".age"

// BackupService copies exports of a Storage to a Vault, optionally encrypted,
// and restores them again.
type BackupService struct {
	storage   *Storage
	vault     Vault
	encryptor Encryptor // nil disables encryption
	logger    Logger
	clock     Clock
}

// NewBackupService creates a BackupService. encryptor may be nil.
func NewBackupService(storage *Storage, vault Vault, encryptor Encryptor, logger Logger, clock Clock) *BackupService {
	return &BackupService{
		storage:   storage,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
	}
}

// Backup exports all data and uploads it. It returns the vault name of the
// new backup: <userID>/giftwise_backup_<timestamp>.json, plus ".age" when
// encrypted.
func (b *BackupService) Backup() (string, error) {
	userID, err := b.storage.UserID()
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", fmt.Errorf("storage is not initialized")
	}

	data, _, err := b.storage.ExportJSON()
	if err != nil {
		return "", fmt.Errorf("exporting data: %w", err)
	}

	name := fmt.Sprintf("%s/giftwise_backup_%s.json", userID, b.clock.Now().UTC().Format("20060102T150405Z"))
	if b.encryptor != nil {
		var ciphertext bytes.Buffer
		if err := b.encryptor.Encrypt(bytes.NewReader(data), &ciphertext); err != nil {
			return "", fmt.Errorf("encrypting backup: %w", err)
		}
		data = ciphertext.Bytes()
		name += encryptedSuffix
	}

	if err := b.vault.Put(name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("uploading backup: %w", err)
	}

	b.logger.Info("backup uploaded", "name", name, "bytes", len(data))
	return name, nil
}

// List returns the names of this user's backups, oldest first.
func (b *BackupService) List() ([]string, error) {
	userID, err := b.storage.UserID()
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, nil
	}
	names, err := b.vault.List(userID + "/")
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return names, nil
}

// IsEncrypted reports whether the named backup needs a DecryptionContext.
func IsEncrypted(name string) bool {
	return strings.HasSuffix(name, encryptedSuffix)
}

// Restore downloads the named backup and imports it. dc is required for
// encrypted backups and ignored otherwise.
func (b *BackupService) Restore(name string, dc DecryptionContext) (ImportResult, error) {
	var buf bytes.Buffer
	if err := b.vault.Get(name, &buf); err != nil {
		return ImportResult{}, fmt.Errorf("downloading backup: %w", err)
	}

	data := buf.Bytes()
	if IsEncrypted(name) {
		if dc == nil {
			return ImportResult{}, fmt.Errorf("backup %s is encrypted but no decryption context was provided", name)
		}
		var plaintext bytes.Buffer
		if err := dc.Decrypt(bytes.NewReader(data), &plaintext); err != nil {
			return ImportResult{}, fmt.Errorf("decrypting backup: %w", err)
		}
		data = plaintext.Bytes()
	}

	res, err := b.storage.ImportData(data)
	if err != nil {
		return ImportResult{}, err
	}
	b.logger.Info("backup restored", "name", name, "profiles", res.Profiles, "gifts", res.Gifts)
	return res, nil
}
