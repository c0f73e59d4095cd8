package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultQuota is the backing store quota used when none is configured (10 MiB).
// Like storage usage it counts two bytes per UTF-16 unit of stored values;
// keys are free.
const DefaultQuota int64 = 10 * 1024 * 1024

// Config represents the main configuration for giftwise.
type Config struct {
	Namespace     string           `toml:"namespace"`
	BaseDir       string           `toml:"base_dir"`
	LogDir        string           `toml:"log_dir"`
	LogLevel      string           `toml:"log_level,omitempty"` // debug, info, warn or error
	DefaultAPIKey string           `toml:"default_api_key,omitempty"`
	Store         StoreConfig      `toml:"store"`
	Vaults        []VaultConfig    `toml:"vaults"`
	Encryption    EncryptionConfig `toml:"encryption"`
	Server        ServerConfig     `toml:"server"`
}

// StoreConfig represents configuration for the key-value backing store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	// "memory", "filesystem", "sqlite", "libsql", "postgres", "redis" or "mongo"
	Type string `toml:"type"`

	// Directory for type=filesystem, database file for type=sqlite.
	Path string `toml:"path,omitempty"`

	// Connection URL for libsql, postgres, redis and mongo.
	URL string `toml:"url,omitempty"`

	// Mongo database name (only used when Type == "mongo").
	Database string `toml:"database,omitempty"`

	// Max bytes the namespace may occupy; defaults to DefaultQuota.
	Quota int64 `toml:"quota"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt backups.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (when empty), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for a backup vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Optional S3-compatible endpoint (e.g. MinIO) and static credentials.
	// Without them the default AWS endpoint and credential chain are used.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// NewConfig creates a new Config rooted at baseDir with a sqlite store, a
// filesystem vault and default key paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		Namespace: "giftwise",
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		LogLevel:  "info",
		Store: StoreConfig{
			Type:  "sqlite",
			Path:  filepath.Join(baseDir, "giftwise.db"),
			Quota: DefaultQuota,
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "backups")},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "giftwise.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "giftwise.key"),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "giftwise"
	}
	if cfg.Store.Quota <= 0 {
		cfg.Store.Quota = DefaultQuota
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the .env file at path into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from GIFTWISE_* environment variables, so
// secrets such as connection URLs and API keys can stay out of the file.
func ApplyEnv(cfg *Config) error {
	cfg.Namespace = getEnv("GIFTWISE_NAMESPACE", cfg.Namespace)
	cfg.LogLevel = getEnv("GIFTWISE_LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultAPIKey = getEnv("GIFTWISE_DEFAULT_API_KEY", cfg.DefaultAPIKey)
	cfg.Store.Type = getEnv("GIFTWISE_STORE_TYPE", cfg.Store.Type)
	cfg.Store.Path = getEnv("GIFTWISE_STORE_PATH", cfg.Store.Path)
	cfg.Store.URL = getEnv("GIFTWISE_STORE_URL", cfg.Store.URL)
	cfg.Server.Addr = getEnv("GIFTWISE_SERVER_ADDR", cfg.Server.Addr)

	if v := os.Getenv("GIFTWISE_STORE_QUOTA"); v != "" {
		quota, err := strconv.ParseInt(v, 10, 64)
		if err != nil || quota <= 0 {
			return fmt.Errorf("invalid GIFTWISE_STORE_QUOTA %q", v)
		}
		cfg.Store.Quota = quota
	}
	if origins := parseList(os.Getenv("GIFTWISE_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
