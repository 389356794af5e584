package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"fairhire/internal/fairness"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. FAIRHIRE_SERVER_PORT.
const EnvPrefix = "FAIRHIRE"

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (FAIRHIRE_NARRATIVE_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Fairness      FairnessConfig      `mapstructure:"fairness"`
	Store         StoreConfig         `mapstructure:"store"`
	Events        EventsConfig        `mapstructure:"events"`
	Narrative     NarrativeConfig     `mapstructure:"narrative"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	TLS TLSConfig `mapstructure:"tls"`

	// Valid API keys for authentication; empty disables auth
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// FairnessConfig holds the detection policy and the dataset column conventions
type FairnessConfig struct {
	Thresholds fairness.Thresholds `mapstructure:"thresholds"`

	// ProfileFile is a YAML threshold profile overlaid on Thresholds
	ProfileFile   string        `mapstructure:"profileFile"`
	WatchProfile  bool          `mapstructure:"watchProfile"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`

	DecisionColumn      string   `mapstructure:"decisionColumn"`
	GroundTruthColumn   string   `mapstructure:"groundTruthColumn"`
	RequireGroundTruth  bool     `mapstructure:"requireGroundTruth"`
	FavorableLabel      int      `mapstructure:"favorableLabel"`
	ProtectedAttributes []string `mapstructure:"protectedAttributes"`

	// thresholds as configured before the profile overlay
	base *fairness.Thresholds
}

// BaseThresholds returns the thresholds a profile reload overlays: the
// configured values without the profile applied.
func (f FairnessConfig) BaseThresholds() fairness.Thresholds {
	if f.base != nil {
		return *f.base
	}
	return f.Thresholds
}

// Columns converts the column conventions for the report builder
func (f FairnessConfig) Columns() fairness.Columns {
	return fairness.Columns{
		Decision:           f.DecisionColumn,
		GroundTruth:        f.GroundTruthColumn,
		RequireGroundTruth: f.RequireGroundTruth,
		Favorable:          f.FavorableLabel,
	}
}

// StoreConfig selects where audit reports are kept
type StoreConfig struct {
	Backend        string        `mapstructure:"backend"` // "memory" or "redis"
	TTL            time.Duration `mapstructure:"ttl"`
	MemoryCapacity int           `mapstructure:"memoryCapacity"`
	Redis          RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the Redis report store connection
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"keyPrefix"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
}

// EventsConfig holds the Kafka audit event publisher
type EventsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	RequiredAcks int           `mapstructure:"requiredAcks"`
	BatchTimeout time.Duration `mapstructure:"batchTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Async        bool          `mapstructure:"async"`
}

// NarrativeConfig holds the optional AI audit summary
type NarrativeConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	APIKey         string               `mapstructure:"apiKey"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	Temperature    float32              `mapstructure:"temperature"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Inline prompts override the built-in ones; a *File variant is read at load time
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
	UserPrompt       string `mapstructure:"userPrompt"`
	UserPromptFile   string `mapstructure:"userPromptFile"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // closed-state count reset
	Timeout          time.Duration `mapstructure:"timeout"`          // open to half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // before tripping is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// CustomMetricsConfig switches groups of application metrics
type CustomMetricsConfig struct {
	Audits         AuditMetricsConfig          `mapstructure:"audits"`
	Narrative      NarrativeMetricsConfig      `mapstructure:"narrative"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AuditMetricsConfig holds fairness audit metrics configuration
type AuditMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackScores     bool `mapstructure:"trackScores"`
	TrackViolations bool `mapstructure:"trackViolations"`
}

// NarrativeMetricsConfig holds AI narrative metrics configuration
type NarrativeMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackStore      bool `mapstructure:"trackStore"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
// found in the standard search paths.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile loads configuration from an explicit file, or searches the
// standard paths when path is empty.
func LoadConfigFile(path string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", EnvPrefix)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/fairhire/")
		v.AddConfigPath("$HOME/.fairhire")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	// thresholds not named in the file keep their struct-tag defaults
	config := Config{Fairness: FairnessConfig{Thresholds: fairness.DefaultThresholds()}}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if err := config.Narrative.loadPromptFiles(); err != nil {
		return nil, fmt.Errorf("failed to load narrative prompts: %w", err)
	}

	if config.Fairness.ProfileFile != "" {
		base := config.Fairness.Thresholds
		config.Fairness.base = &base
		th, err := LoadThresholdProfile(config.Fairness.ProfileFile, config.Fairness.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("failed to load threshold profile: %w", err)
		}
		config.Fairness.Thresholds = th
		log.Printf("[CONFIG] Applied threshold profile: %s", config.Fairness.ProfileFile)
	}

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	// certificates and keys delivered by Vault arrive after validation
	fromVault := c.Vault.Enabled

	if !(fromVault && c.Vault.Secrets.TLSCerts != "") {
		if err := c.Server.TLS.Validate(); err != nil {
			return fmt.Errorf("TLS configuration error: %w", err)
		}
	}

	if err := c.Fairness.Thresholds.Validate(); err != nil {
		return fmt.Errorf("fairness thresholds: %w", err)
	}
	if c.Fairness.DecisionColumn == "" {
		return fmt.Errorf("fairness decision column is required")
	}

	switch c.Store.Backend {
	case "memory":
		if c.Store.MemoryCapacity <= 0 {
			return fmt.Errorf("store memory capacity must be positive")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis store")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be 'memory' or 'redis')", c.Store.Backend)
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("at least one kafka broker is required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	if c.Narrative.Enabled {
		if c.Narrative.APIKey == "" && !(fromVault && c.Vault.Secrets.NarrativeKey != "") {
			return fmt.Errorf("narrative API key is required when narrative is enabled (set %s_NARRATIVE_APIKEY)", EnvPrefix)
		}
		if c.Narrative.Timeout <= 0 {
			return fmt.Errorf("narrative timeout must be positive")
		}
	}

	return nil
}

// applyFallbacks fills values that viper cannot derive on its own
func (c *Config) applyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitList(os.Getenv(EnvPrefix + "_SERVER_APIKEYS"))
	}
	// env values arrive as one comma-separated string or a split with untrimmed parts
	c.Server.APIKeys = normalizeList(c.Server.APIKeys)
	c.Events.Brokers = normalizeList(c.Events.Brokers)
	c.Fairness.ProtectedAttributes = normalizeList(c.Fairness.ProtectedAttributes)

	if c.Narrative.APIKey == "" {
		c.Narrative.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return values
	}
	return splitList(strings.Join(values, ","))
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_SERVER_APIKEYS",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_STORE_BACKEND",
		EnvPrefix + "_STORE_REDIS_ADDR",
		EnvPrefix + "_STORE_REDIS_PASSWORD",
		EnvPrefix + "_EVENTS_ENABLED",
		EnvPrefix + "_EVENTS_BROKERS",
		EnvPrefix + "_NARRATIVE_ENABLED",
		EnvPrefix + "_NARRATIVE_APIKEY",
		EnvPrefix + "_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		lower := strings.ToLower(envVar)
		if strings.Contains(lower, "key") || strings.Contains(lower, "password") {
			log.Printf("[CONFIG]   %s=***MASKED***", envVar)
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	th := c.Fairness.Thresholds
	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Thresholds: parity=%.2f impact=%.2f opportunity=%.2f odds=%.2f",
		th.DemographicParityDifference, th.DisparateImpactRatio, th.EqualOpportunityDifference, th.AverageOddsDifference)
	log.Printf("[CONFIG] Store Backend: %s", c.Store.Backend)
	log.Printf("[CONFIG] Events Enabled: %t", c.Events.Enabled)
	if c.Narrative.APIKey != "" {
		log.Printf("[CONFIG] Narrative: enabled=%t model=%s key=***CONFIGURED***", c.Narrative.Enabled, c.Narrative.Model)
	} else {
		log.Printf("[CONFIG] Narrative: enabled=%t model=%s key=***NOT SET***", c.Narrative.Enabled, c.Narrative.Model)
	}
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
