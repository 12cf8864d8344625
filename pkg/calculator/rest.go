package calculator

import (
	"encoding/json"
	"net/http"

	"github.com/charithe/calcengine/pkg/convert"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Routes returns the REST API. The server mounts it under /v1.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)

	r.Post("/evaluate", s.handleEvaluate)
	r.Post("/convert", s.handleConvert)
	r.Get("/currencies", s.handleCurrencies)
	r.Get("/units/{category}", s.handleUnits)
	return r
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, span trace.Span, status int, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	loggerWithTrace(r.Context()).Info(msg, zap.Error(err), zap.String("path", r.URL.Path))

	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.rest.evaluate")
	defer span.End()
	r = r.WithContext(ctx)

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, span, http.StatusBadRequest, "invalid request body", err)
		return
	}
	span.SetAttributes(attribute.String("mode", req.Mode))

	resp, err := evaluate(&req)
	if err != nil {
		writeError(w, r, span, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.rest.convert")
	defer span.End()
	r = r.WithContext(ctx)

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, span, http.StatusBadRequest, "invalid request body", err)
		return
	}
	span.SetAttributes(attribute.String("category", req.Category))

	resp, err := s.convert(ctx, &req)
	if err != nil {
		writeError(w, r, span, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type currenciesResponse struct {
	Source     string         `json:"source"`
	Currencies []convert.Unit `json:"currencies"`
}

func (s *Service) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.rest.currencies")
	defer span.End()
	r = r.WithContext(ctx)

	units, err := s.converter.Units(convert.Currency)
	if err != nil {
		writeError(w, r, span, http.StatusInternalServerError, "currencies unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, currenciesResponse{Source: s.converter.Rates().Source, Currencies: units})
}

func (s *Service) handleUnits(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.rest.units")
	defer span.End()
	r = r.WithContext(ctx)

	cat, err := convert.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, span, http.StatusNotFound, err.Error(), err)
		return
	}

	units, err := s.converter.Units(cat)
	if err != nil {
		writeError(w, r, span, http.StatusNotFound, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
