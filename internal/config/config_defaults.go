package config

import (
	"time"

	"fairhire/internal/fairness"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 5*1024*1024)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// Fairness Configuration
	th := fairness.DefaultThresholds()
	v.SetDefault("fairness.thresholds.demographicParityDifference", th.DemographicParityDifference)
	v.SetDefault("fairness.thresholds.demographicParityHigh", th.DemographicParityHigh)
	v.SetDefault("fairness.thresholds.disparateImpactRatio", th.DisparateImpactRatio)
	v.SetDefault("fairness.thresholds.disparateImpactHigh", th.DisparateImpactHigh)
	v.SetDefault("fairness.thresholds.equalOpportunityDifference", th.EqualOpportunityDifference)
	v.SetDefault("fairness.thresholds.averageOddsDifference", th.AverageOddsDifference)
	v.SetDefault("fairness.thresholds.predictiveParityDifference", th.PredictiveParityDifference)
	v.SetDefault("fairness.thresholds.falsePositiveRateDifference", th.FalsePositiveRateDifference)
	v.SetDefault("fairness.thresholds.falseNegativeRateDifference", th.FalseNegativeRateDifference)
	v.SetDefault("fairness.thresholds.flagLowSeverity", th.FlagLowSeverity)
	v.SetDefault("fairness.profileFile", "")
	v.SetDefault("fairness.watchProfile", false)
	v.SetDefault("fairness.debounceDelay", time.Second)
	v.SetDefault("fairness.decisionColumn", "decision")
	v.SetDefault("fairness.groundTruthColumn", "ground_truth")
	v.SetDefault("fairness.requireGroundTruth", false)
	v.SetDefault("fairness.favorableLabel", 1)
	v.SetDefault("fairness.protectedAttributes", fairness.DefaultProtectedAttributes)

	// Store Configuration
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.ttl", 30*24*time.Hour)
	v.SetDefault("store.memoryCapacity", 1024)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.keyPrefix", "fairhire:audit:")
	v.SetDefault("store.redis.dialTimeout", 5*time.Second)

	// Events Configuration
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "fairhire.audits")
	v.SetDefault("events.requiredAcks", 1)
	v.SetDefault("events.batchTimeout", 10*time.Millisecond)
	v.SetDefault("events.writeTimeout", 10*time.Second)
	v.SetDefault("events.async", false)

	// Narrative Configuration
	v.SetDefault("narrative.enabled", false)
	v.SetDefault("narrative.provider", "gemini")
	v.SetDefault("narrative.model", "gemini-2.0-flash")
	v.SetDefault("narrative.apiKey", "")
	v.SetDefault("narrative.timeout", 60*time.Second)
	v.SetDefault("narrative.maxRetries", 2)
	v.SetDefault("narrative.temperature", 0.2)
	v.SetDefault("narrative.circuitBreaker.enabled", true)
	v.SetDefault("narrative.circuitBreaker.maxRequests", 3)
	v.SetDefault("narrative.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("narrative.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("narrative.circuitBreaker.minRequests", 3)
	v.SetDefault("narrative.circuitBreaker.failureThreshold", 0.6)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.narrativeKey", "")
	v.SetDefault("vault.secrets.storePassword", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "fairhire")
	v.SetDefault("observability.serviceVersion", "")  // falls back to the build version
	v.SetDefault("observability.serviceInstance", "") // derived from hostname
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.audits.enabled", true)
	v.SetDefault("observability.customMetrics.audits.trackScores", true)
	v.SetDefault("observability.customMetrics.audits.trackViolations", true)
	v.SetDefault("observability.customMetrics.narrative.enabled", true)
	v.SetDefault("observability.customMetrics.narrative.trackDuration", true)
	v.SetDefault("observability.customMetrics.narrative.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackStore", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
