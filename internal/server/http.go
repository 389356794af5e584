package server

import (
	"fmt"
	"time"

	"fairhire/internal/audit"
	"fairhire/internal/config"
	"fairhire/internal/dataset"
	"fairhire/internal/errors"
	"fairhire/internal/observability"
)

// ColumnOverrides replaces the configured column names for one request
type ColumnOverrides struct {
	DecisionColumn    string `json:"decisionColumn" validate:"omitempty,max=128"`
	GroundTruthColumn string `json:"groundTruthColumn" validate:"omitempty,max=128"`
	FavorableLabel    *int   `json:"favorableLabel"`
}

func (o ColumnOverrides) toAudit() audit.ColumnOverrides {
	return audit.ColumnOverrides{
		DecisionColumn:    o.DecisionColumn,
		GroundTruthColumn: o.GroundTruthColumn,
		FavorableLabel:    o.FavorableLabel,
	}
}

// AnalyzeRequest is the body of POST /v1/analyze.
// An empty applications list is analyzed and fails as empty_dataset.
type AnalyzeRequest struct {
	Applications []dataset.Row `json:"applications" validate:"required"`
	Attribute    string        `json:"attribute" validate:"required,max=128"`
	// View "legacy" returns the flat key set older clients read
	View string `json:"view" validate:"omitempty,oneof=full legacy" default:"full"`
	ColumnOverrides
}

// AuditRequest is the body of POST /v1/audits
type AuditRequest struct {
	Applications []dataset.Row `json:"applications" validate:"required"`
	JobID        string        `json:"jobId" validate:"max=256"`
	Attributes   []string      `json:"attributes" validate:"omitempty,max=32,dive,required,max=128"`
	Narrative    bool          `json:"narrative"`
	ColumnOverrides
}

// EvaluateRequest is the body of POST /v1/evaluate
type EvaluateRequest struct {
	Predictions    []int    `json:"predictions" validate:"required"`
	Labels         []int    `json:"labels"`
	Groups         []string `json:"groups" validate:"required"`
	FavorableLabel *int     `json:"favorableLabel" default:"1"`
	Attribute      string   `json:"attribute" validate:"max=128" default:"group"`
}

// RatesRequest is the body of POST /v1/rates
type RatesRequest struct {
	SelectionRates    map[string]float64 `json:"selectionRates" validate:"required,min=1,dive,gte=0,lte=1"`
	TruePositiveRates map[string]float64 `json:"truePositiveRates" validate:"omitempty,dive,gte=0,lte=1"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details []ValidationError `json:"details,omitempty"`
}

// Server exposes the audit service over HTTP
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	Service   *audit.Service

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Observability *observability.Manager
	Logger        *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom copies the server section of the application config
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	rl := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &rl,
	}
}

// NewServer creates a Server. om may be nil, in which case telemetry is off.
func NewServer(appCfg *config.Config, svc *audit.Service, om *observability.Manager, cfg ServerConfig, logger *errors.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("audit service is required")
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Service:        svc,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Observability:  om,
		Logger:         logger,
	}, nil
}

func (s *Server) metrics() *observability.Metrics {
	return s.Observability.Metrics()
}
