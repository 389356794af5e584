package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTLSConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		tls      TLSConfig
		errorMsg string
	}{
		{name: "empty mode", tls: TLSConfig{}},
		{name: "disabled ignores files", tls: TLSConfig{Mode: "disabled", CertFile: "a", CertContent: "b"}},
		{
			name: "server mode with files",
			tls:  TLSConfig{Mode: "server", CertFile: "/c.pem", KeyFile: "/k.pem", MinVersion: "1.3"},
		},
		{
			name: "server mode with content",
			tls:  TLSConfig{Mode: "server", CertContent: "cert", KeyContent: "key"},
		},
		{
			name: "mutual mode mixed sources",
			tls:  TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyContent: "key", CAFile: "/ca.pem", ClientAuthPolicy: "verify"},
		},
		{
			name:     "invalid mode",
			tls:      TLSConfig{Mode: "invalid"},
			errorMsg: "invalid TLS mode: invalid",
		},
		{
			name:     "server mode missing cert",
			tls:      TLSConfig{Mode: "server", KeyFile: "/k.pem"},
			errorMsg: "TLS cert is required for server mode",
		},
		{
			name:     "server mode missing key",
			tls:      TLSConfig{Mode: "server", CertFile: "/c.pem"},
			errorMsg: "TLS key is required for server mode",
		},
		{
			name:     "duplicate cert source",
			tls:      TLSConfig{Mode: "server", CertFile: "/c.pem", CertContent: "cert", KeyFile: "/k.pem"},
			errorMsg: "cannot specify both certFile and certContent",
		},
		{
			name:     "mutual mode missing ca",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem"},
			errorMsg: "TLS ca is required for mutual mode",
		},
		{
			name:     "duplicate ca source",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", CAContent: "ca"},
			errorMsg: "cannot specify both caFile and caContent",
		},
		{
			name:     "server mode does not need ca",
			tls:      TLSConfig{Mode: "server", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", CAContent: "ca"},
			errorMsg: "",
		},
		{
			name:     "invalid client auth policy",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", ClientAuthPolicy: "sometimes"},
			errorMsg: "invalid clientAuthPolicy: sometimes",
		},
		{
			name:     "invalid min version",
			tls:      TLSConfig{Mode: "server", CertFile: "/c.pem", KeyFile: "/k.pem", MinVersion: "1.1"},
			errorMsg: "invalid TLS minVersion: 1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tls.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestTLSConfigEnabled(t *testing.T) {
	assert.False(t, TLSConfig{}.Enabled())
	assert.False(t, TLSConfig{Mode: "disabled"}.Enabled())
	assert.True(t, TLSConfig{Mode: "server"}.Enabled())
	assert.True(t, TLSConfig{Mode: "mutual"}.Enabled())
}

func TestValidateClientAuthPolicy(t *testing.T) {
	for _, policy := range []string{"", "require", "request", "verify"} {
		assert.NoError(t, validateClientAuthPolicy(policy), policy)
	}
	assert.Error(t, validateClientAuthPolicy("always"))
}

func TestValidateTLSVersion(t *testing.T) {
	for _, version := range []string{"", "1.2", "1.3"} {
		assert.NoError(t, validateTLSVersion(version), version)
	}
	for _, version := range []string{"1.0", "1.1", "TLS1.3"} {
		assert.Error(t, validateTLSVersion(version), version)
	}
}
