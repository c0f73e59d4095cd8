// Package app wires the storage facade and its collaborators from
// configuration for the CLI and the HTTP server.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"giftwise/internal/config"
	"giftwise/internal/encryption"
	"giftwise/internal/gw"
	"giftwise/internal/kv"
	"giftwise/internal/records"
	"giftwise/internal/vault"
)

// App owns the backing store, the initialized Storage and the optional backup
// service for one operation. The caller must call Close when done.
type App struct {
	cfg       *config.Config
	store     *kv.Store
	storage   *gw.Storage
	backups   *gw.BackupService
	encryptor gw.Encryptor
	op        *Operation
	clock     gw.Clock
	logger    *slog.Logger
	logFile   *os.File
}

// New builds an App from cfg and initializes the storage. operation names the
// command being run (e.g. "AddProfile", "Serve") in log lines.
func New(cfg *config.Config, operation string) (*App, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	clock := gw.RealClock{}
	op := NewOperation(operation, gw.UUIDGenerator{}, clock)
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := wire(cfg, op, clock, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile

	logger.Debug("operation started", "operation", op.Name, "store", cfg.Store.Type)
	return a, nil
}

func wire(cfg *config.Config, op *Operation, clock gw.Clock, logger *slog.Logger) (*App, error) {
	store, err := kv.NewStoreFromConfig(cfg.Store, cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	log := &slogAdapter{l: logger}
	bus := gw.NewEventBus()
	storage := gw.NewStorage(
		store,
		records.NewProfileStore(store, bus, log, clock),
		records.NewHistoryStore(store, bus, log, clock),
		records.NewSettingsStore(store, bus, log, clock),
		bus, log, clock, gw.ULIDGenerator{},
	)
	storage.SetDefaultAPIKey(cfg.DefaultAPIKey)

	if err := storage.Init(); err != nil {
		store.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	a := &App{
		cfg:       cfg,
		store:     store,
		storage:   storage,
		encryptor: enc,
		op:        op,
		clock:     clock,
		logger:    logger,
	}

	if len(cfg.Vaults) > 0 {
		v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
		a.backups = gw.NewBackupService(storage, v, enc, log, clock)
	}
	return a, nil
}

// Storage returns the initialized storage facade.
func (a *App) Storage() *gw.Storage { return a.storage }

// Logger returns the operation's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Encryptor returns the configured encryptor, or nil when backups are not
// encrypted.
func (a *App) Encryptor() gw.Encryptor { return a.encryptor }

// Backups returns the backup service for the first configured vault.
func (a *App) Backups() (*gw.BackupService, error) {
	if a.backups == nil {
		return nil, fmt.Errorf("no vaults configured")
	}
	return a.backups, nil
}

// Fail marks the operation as failed; Close logs the outcome.
func (a *App) Fail(err error) {
	a.op.Fail()
	a.logger.Error("operation failed", "operation", a.op.Name, "error", err)
}

// Close logs the operation outcome and releases the store and log file.
func (a *App) Close() error {
	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "elapsed", a.op.Elapsed(a.clock))

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
