package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"fairhire/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths secrets are read from. An empty path skips that secret.
type VaultSecrets struct {
	APIKeys       string `mapstructure:"apiKeys"`       // key "keys", comma-separated
	NarrativeKey  string `mapstructure:"narrativeKey"`  // key "api_key"
	StorePassword string `mapstructure:"storePassword"` // key "password"
	TLSCerts      string `mapstructure:"tlsCerts"`      // keys "cert", "key", "ca"
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault. It returns nil without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	apiConfig := api.DefaultConfig()
	if config.Address != "" {
		apiConfig.Address = config.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		logger.LogError(err, "Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		logger.LogError(err, "Vault token unavailable")
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Successfully connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken prefers the inline token and falls back to the token file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKV2(secret, path)
}

// decodeKV2 unpacks the data and metadata envelopes of a KVv2 read
func decodeKV2(secret *api.Secret, path string) (*VaultSecret, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	raw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(raw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the numeric forms the Vault client decodes versions into
func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// String returns a string value from the secret
func (s *VaultSecret) String(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return str, nil
}

// secretBinding maps one Vault path onto the part of Config it fills
type secretBinding struct {
	name  string
	path  string
	apply func(*Config, *VaultSecret) (int, error)
}

func (c *Config) vaultBindings() []secretBinding {
	return []secretBinding{
		{"api keys", c.Vault.Secrets.APIKeys, applyAPIKeys},
		{"narrative key", c.Vault.Secrets.NarrativeKey, applyNarrativeKey},
		{"store password", c.Vault.Secrets.StorePassword, applyStorePassword},
		{"tls certificates", c.Vault.Secrets.TLSCerts, applyTLSCerts},
	}
}

func applyAPIKeys(c *Config, s *VaultSecret) (int, error) {
	raw, err := s.String("keys")
	if err != nil {
		return 0, err
	}
	keys := splitList(raw)
	if len(keys) > 0 {
		c.Server.APIKeys = keys
	}
	return len(keys), nil
}

func applyNarrativeKey(c *Config, s *VaultSecret) (int, error) {
	key, err := s.String("api_key")
	if err != nil || key == "" {
		return 0, err
	}
	c.Narrative.APIKey = key
	return 1, nil
}

func applyStorePassword(c *Config, s *VaultSecret) (int, error) {
	password, err := s.String("password")
	if err != nil || password == "" {
		return 0, err
	}
	c.Store.Redis.Password = password
	return 1, nil
}

// applyTLSCerts fills PEM content. File paths stored in Vault are rejected
// because the server would read them from its own disk.
func applyTLSCerts(c *Config, s *VaultSecret) (int, error) {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, found := s.Data[field]; found {
			return 0, fmt.Errorf("vault TLS secret field '%s' is not supported, store PEM content in '%s'",
				field, strings.TrimSuffix(field, "_file"))
		}
	}

	// Vault content replaces any file path so the pair stays mutually exclusive
	targets := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &c.Server.TLS.CertContent, &c.Server.TLS.CertFile},
		{"key", &c.Server.TLS.KeyContent, &c.Server.TLS.KeyFile},
		{"ca", &c.Server.TLS.CAContent, &c.Server.TLS.CAFile},
	}
	loaded := 0
	for _, t := range targets {
		if content, ok := s.Data[t.key].(string); ok && content != "" {
			*t.content = content
			*t.file = ""
			loaded++
		}
	}
	return loaded, nil
}

// ApplyVaultSecrets reads every configured secret path and overlays the values on config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(config, client.GetSecretV2, logger)
}

// applySecrets runs every binding with a non-empty path through fetch
func applySecrets(config *Config, fetch func(path string) (*VaultSecret, error), logger *errors.Logger) error {
	for _, b := range config.vaultBindings() {
		if b.path == "" {
			continue
		}
		secret, err := fetch(b.path)
		if err != nil {
			logger.LogError(err, "Failed to read secret from Vault", "secret", b.name, "path", b.path)
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		count, err := b.apply(config, secret)
		if err != nil {
			logger.LogError(err, "Invalid secret in Vault", "secret", b.name, "path", b.path)
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if count == 0 {
			logger.Warn("Vault secret is empty", "secret", b.name, "path", b.path)
			continue
		}
		logger.Info("Secret loaded from Vault", "secret", b.name, "values", count, "version", secret.Version)
	}
	return nil
}
