package config

import "fmt"

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"` // client CA, required for mutual mode

	// PEM content, filled from Vault instead of files
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2" or "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"
}

// Enabled reports whether the server should terminate TLS
func (t TLSConfig) Enabled() bool {
	return t.Mode == "server" || t.Mode == "mutual"
}

// pemSource is one certificate input that may come from a file or inline content
type pemSource struct {
	name    string
	file    string
	content string
}

func (t TLSConfig) sources() (cert, key, ca pemSource) {
	return pemSource{"cert", t.CertFile, t.CertContent},
		pemSource{"key", t.KeyFile, t.KeyContent},
		pemSource{"ca", t.CAFile, t.CAContent}
}

// Validate checks the TLS mode and that every required certificate has exactly one source
func (t TLSConfig) Validate() error {
	cert, key, ca := t.sources()

	var required []pemSource
	switch t.Mode {
	case "disabled", "":
		return nil
	case "server":
		required = []pemSource{cert, key}
	case "mutual":
		required = []pemSource{cert, key, ca}
		if err := validateClientAuthPolicy(t.ClientAuthPolicy); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	for _, src := range required {
		if err := src.validate(t.Mode); err != nil {
			return err
		}
	}
	return validateTLSVersion(t.MinVersion)
}

func (s pemSource) validate(mode string) error {
	switch {
	case s.file == "" && s.content == "":
		return fmt.Errorf("TLS %s is required for %s mode (provide either %sFile or %sContent)", s.name, mode, s.name, s.name)
	case s.file != "" && s.content != "":
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", s.name, s.name)
	}
	return nil
}

func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}
