package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"fairhire/internal/audit"
	"fairhire/internal/dataset"
	"fairhire/internal/errors"
	"fairhire/internal/fairness"
	"fairhire/internal/types"
)

// healthHandler reports service health including the narrative model and report store
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "fairhire",
		"version": s.Version,
	}
	healthy := true

	if info := s.Service.NarrativeHealth(r.Context()); info != nil {
		response["narrative"] = info
		healthy = healthy && info.Available
	}
	if stats, ok := s.Service.StoreStats(r.Context()); ok {
		response["store"] = stats
		healthy = healthy && stats.Healthy
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "fairhire",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"audit": s.Service.Stats(r.Context()),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// analyzeHandler analyzes one protected attribute. A failed analysis is a 422
// carrying the error kind, never a report.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	outcome, err := s.Service.Analyze(r.Context(), audit.AnalyzeRequest{
		Dataset:         dataset.New(req.Applications),
		Attribute:       req.Attribute,
		ColumnOverrides: req.ColumnOverrides.toAudit(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !outcome.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, outcome)
		return
	}

	if req.View == "legacy" {
		writeJSON(w, http.StatusOK, fairness.LegacyView(outcome.Report))
		return
	}
	writeJSON(w, http.StatusOK, outcome.Report)
}

// createAuditHandler runs a multi-attribute audit and returns it with its storage status
func (s *Server) createAuditHandler(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.Service.Audit(r.Context(), audit.AuditRequest{
		Dataset:         dataset.New(req.Applications),
		JobID:           req.JobID,
		Attributes:      req.Attributes,
		ColumnOverrides: req.ColumnOverrides.toAudit(),
		Narrative:       req.Narrative,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if result.Persisted {
		w.Header().Set("Location", "/v1/audits/"+result.Report.AuditID)
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) getAuditHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// evaluateHandler runs the pipeline on parallel arrays
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.Service.Evaluate(r.Context(), audit.EvaluateRequest{
		Predictions:    req.Predictions,
		Labels:         req.Labels,
		Groups:         req.Groups,
		FavorableLabel: *req.FavorableLabel,
		Attribute:      req.Attribute,
	})
	if stderrors.Is(err, fairness.ErrEmptyDataset) {
		writeJSON(w, http.StatusUnprocessableEntity, fairness.Outcome{
			Error:     fairness.NoDataMessage,
			ErrorKind: fairness.ErrorEmptyDataset,
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) ratesHandler(w http.ResponseWriter, r *http.Request) {
	var req RatesRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.Service.Rates(req.SelectionRates, req.TruePositiveRates))
}

// badgeHandler maps a 0-100 score to its badge
func (s *Server) badgeHandler(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseFloat(r.PathValue("score"), 64)
	if err != nil || math.IsNaN(score) || score < 0 || score > 100 {
		writeErrorResponse(w, "Invalid score", "score must be a number between 0 and 100", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, types.NewBadgeResult(score))
}

// decode reads and validates a request body, writing the error response on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	details, err := readAndValidateRequest(r, req)
	if err != nil {
		var reqErr *requestError
		if stderrors.As(err, &reqErr) {
			writeErrorResponse(w, http.StatusText(reqErr.status), reqErr.message, reqErr.status)
			return false
		}
		writeErrorResponse(w, "Bad Request", err.Error(), http.StatusBadRequest)
		return false
	}
	if len(details) > 0 {
		s.Logger.Debug("Request validation failed", "endpoint", r.URL.Path, "errors", len(details))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Message: details[0].Message,
			Code:    errors.ErrCodeInvalidRequest,
			Details: details,
		})
		return false
	}
	return true
}

// writeServiceError maps an audit service error to a status code
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	}

	response := ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		response.Message = appErr.Message
		response.Code = appErr.Code
	}
	writeJSON(w, status, response)
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeAnalysis:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeStorage:
		if appErr.Code == errors.ErrCodeReportNotFound {
			return http.StatusNotFound
		}
		return http.StatusServiceUnavailable
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}
