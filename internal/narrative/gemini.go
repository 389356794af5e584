package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fairhire/internal/config"
	apperrors "fairhire/internal/errors"
	"fairhire/internal/fairness"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// models is the part of the genai client the narrator calls
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiNarrator implements Narrator with Google Gemini
type GeminiNarrator struct {
	models       models
	cfg          config.NarrativeConfig
	prompts      Prompts
	breaker      *Breaker[*genai.GenerateContentResponse]
	modelBreaker *Breaker[*genai.Model]
	retry        retrier
	logger       *apperrors.Logger
}

var _ Narrator = (*GeminiNarrator)(nil)

// NewGeminiNarrator creates a Gemini client using the narrative configuration
func NewGeminiNarrator(ctx context.Context, cfg config.NarrativeConfig, logger *apperrors.Logger) (*GeminiNarrator, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey, "Narrative API key is not configured", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}
	return newGeminiNarrator(client.Models, cfg, logger), nil
}

func newGeminiNarrator(m models, cfg config.NarrativeConfig, logger *apperrors.Logger) *GeminiNarrator {
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}
	modelCB := cfg.CircuitBreaker
	// model lookups only feed health checks, so they trip later
	modelCB.MinRequests, modelCB.FailureThreshold = 5, 0.8

	return &GeminiNarrator{
		models:       m,
		cfg:          cfg,
		prompts:      ResolvePrompts(cfg.SystemPrompt, cfg.UserPrompt),
		breaker:      NewBreaker[*genai.GenerateContentResponse]("narrative-generate", cfg.CircuitBreaker, logger),
		modelBreaker: NewBreaker[*genai.Model]("narrative-model", modelCB, logger),
		retry:        retrier{maxRetries: max(cfg.MaxRetries, 0), backoff: backoffFor, logger: logger},
		logger:       logger,
	}
}

// Summarize asks the model for a structured summary of the audit
func (g *GeminiNarrator) Summarize(ctx context.Context, report *fairness.AuditReport) (*Narrative, error) {
	if report == nil {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Audit report is required", nil)
	}

	ctx, span := otel.Tracer("fairhire.narrative.gemini").Start(ctx, "gemini.summarize_audit")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.cfg.Model),
		attribute.String("audit.id", report.AuditID),
		attribute.Int("audit.attributes", len(report.Attributes)),
	)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	genCfg := g.generateConfig()
	prompt := g.prompts.Render(report)

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return withRetry(ctx, g.retry, "summarize_audit", func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), genCfg)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		code := apperrors.ErrCodeAIServiceFailed
		if ctx.Err() == context.DeadlineExceeded {
			code = apperrors.ErrCodeAITimeout
		}
		return nil, apperrors.NewAIError(code, "Failed to generate audit narrative", err)
	}

	n, err := parseNarrative(result.Text())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to parse audit narrative", err)
	}
	n.Model = g.cfg.Model
	n.Usage = extractTokenUsage(result)

	if n.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", n.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", n.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", n.Usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return n, nil
}

func (g *GeminiNarrator) generateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"summary": {Type: genai.TypeString},
				"keyFindings": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"summary", "keyFindings"},
		},
	}
	if g.prompts.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.prompts.System, genai.RoleUser)
	}
	if g.cfg.Temperature > 0 {
		t := g.cfg.Temperature
		cfg.Temperature = &t
	}
	return cfg
}

func parseNarrative(text string) (*Narrative, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}
	var n Narrative
	if err := json.Unmarshal([]byte(text), &n); err != nil {
		return nil, err
	}
	if strings.TrimSpace(n.Summary) == "" {
		return nil, fmt.Errorf("response has no summary")
	}
	return &n, nil
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// ModelInfo checks that the configured model is reachable
func (g *GeminiNarrator) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.cfg.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.cfg.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// Stats reports circuit breaker state
func (g *GeminiNarrator) Stats() map[string]any {
	return map[string]any{
		"provider":         "gemini",
		"model":            g.cfg.Model,
		"generate_breaker": g.breaker.Stats(),
		"model_breaker":    g.modelBreaker.Stats(),
		"healthy":          g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close is a no-op; the genai client holds no long-lived connections
func (g *GeminiNarrator) Close() error {
	return nil
}
