package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"fairhire/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kv2(data map[string]any, version any) *api.Secret {
	return &api.Secret{Data: map[string]any{
		"data":     data,
		"metadata": map[string]any{"version": version},
	}}
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "int value", input: 7, expected: 7},
		{name: "float64 value", input: float64(42), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "float string", input: "42.5", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeKV2(t *testing.T) {
	tests := []struct {
		name        string
		secret      *api.Secret
		expectError string
		expected    *VaultSecret
	}{
		{
			name:     "valid secret",
			secret:   kv2(map[string]any{"api_key": "abc"}, float64(3)),
			expected: &VaultSecret{Data: map[string]any{"api_key": "abc"}, Version: 3},
		},
		{
			name:        "missing data field",
			secret:      &api.Secret{Data: map[string]any{"metadata": map[string]any{"version": 1}}},
			expectError: "missing 'data' field",
		},
		{
			name:        "data field wrong type",
			secret:      &api.Secret{Data: map[string]any{"data": "not-a-map", "metadata": map[string]any{}}},
			expectError: "missing 'data' field",
		},
		{
			name:        "missing metadata field",
			secret:      &api.Secret{Data: map[string]any{"data": map[string]any{}}},
			expectError: "missing 'metadata' field",
		},
		{
			name: "missing version field",
			secret: &api.Secret{Data: map[string]any{
				"data":     map[string]any{},
				"metadata": map[string]any{"other": "value"},
			}},
			expectError: "missing 'version' field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := decodeKV2(tt.secret, "secret/test")
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token", TokenFile: "/ignored"})
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("blank token file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "empty-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("   \n  \n"), 0600))

		_, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestApplyTLSCerts(t *testing.T) {
	t.Run("content replaces file paths", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{TLS: TLSConfig{Mode: "server", CertFile: "/etc/cert.pem", KeyFile: "/etc/key.pem"}}}
		secret := &VaultSecret{Data: map[string]any{"cert": "cert-content", "key": "key-content", "ca": "ca-content"}}

		count, err := applyTLSCerts(cfg, secret)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, "cert-content", cfg.Server.TLS.CertContent)
		assert.Equal(t, "key-content", cfg.Server.TLS.KeyContent)
		assert.Equal(t, "ca-content", cfg.Server.TLS.CAContent)
		assert.Empty(t, cfg.Server.TLS.CertFile)
		assert.Empty(t, cfg.Server.TLS.KeyFile)
		assert.NoError(t, cfg.Server.TLS.Validate())
	})

	t.Run("partial content", func(t *testing.T) {
		cfg := &Config{}
		count, err := applyTLSCerts(cfg, &VaultSecret{Data: map[string]any{"cert": "cert-content", "key": 123}})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Empty(t, cfg.Server.TLS.KeyContent)
	})

	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		t.Run("rejects "+field, func(t *testing.T) {
			_, err := applyTLSCerts(&Config{}, &VaultSecret{Data: map[string]any{field: "/path"}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestApplySecrets(t *testing.T) {
	secrets := map[string]*VaultSecret{
		"kv/data/api":   {Data: map[string]any{"keys": "k1, k2,,k3"}, Version: 2},
		"kv/data/ai":    {Data: map[string]any{"api_key": "gemini-secret"}, Version: 1},
		"kv/data/redis": {Data: map[string]any{"password": "hunter2"}, Version: 4},
	}
	fetch := func(path string) (*VaultSecret, error) {
		if s, ok := secrets[path]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	t.Run("applies every configured path", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:       "kv/data/api",
			NarrativeKey:  "kv/data/ai",
			StorePassword: "kv/data/redis",
		}}}

		require.NoError(t, applySecrets(cfg, fetch, errors.NewNopLogger()))
		assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
		assert.Equal(t, "gemini-secret", cfg.Narrative.APIKey)
		assert.Equal(t, "hunter2", cfg.Store.Redis.Password)
	})

	t.Run("skips empty paths", func(t *testing.T) {
		cfg := &Config{Narrative: NarrativeConfig{APIKey: "from-env"}}
		require.NoError(t, applySecrets(cfg, fetch, errors.NewNopLogger()))
		assert.Equal(t, "from-env", cfg.Narrative.APIKey)
	})

	t.Run("missing secret fails", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{NarrativeKey: "kv/data/missing"}}}
		err := applySecrets(cfg, fetch, errors.NewNopLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "narrative key")
	})

	t.Run("missing key in secret fails", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{APIKeys: "kv/data/ai"}}}
		err := applySecrets(cfg, fetch, errors.NewNopLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'keys' not found")
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Narrative: NarrativeConfig{APIKey: "kept"}}
	require.NoError(t, ApplyVaultSecrets(cfg, nil))
	assert.Equal(t, "kept", cfg.Narrative.APIKey)
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = client.GetSecretV2("kv/data/any")
	assert.Error(t, err)
}
