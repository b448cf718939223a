package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	surveyIDKey   contextKey = "survey_id"
	responseIDKey contextKey = "response_id"
	reviewerIDKey contextKey = "reviewer_id"
	requestIDKey  contextKey = "request_id"
)

// WithSurveyID annotates context with the survey being operated on.
func WithSurveyID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, surveyIDKey, id)
}

// SurveyIDFromContext extracts the survey identifier if present.
func SurveyIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(surveyIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithResponseID annotates context with the response being operated on.
func WithResponseID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, responseIDKey, id)
}

// ResponseIDFromContext extracts the response identifier if present.
func ResponseIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(responseIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithReviewerID annotates context with the acting reviewer.
func WithReviewerID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, reviewerIDKey, id)
}

// ReviewerIDFromContext extracts the reviewer identifier if present.
func ReviewerIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(reviewerIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := SurveyIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSurveyID, id))
	}
	if id, ok := ResponseIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldResponseID, id))
	}
	if id, ok := ReviewerIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldReviewerID, id))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
