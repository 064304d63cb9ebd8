// Package logging builds the service's structured JSON logger.
package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger tagged with the service name.
func New(service, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", service)), nil
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID stores the request id so service-level log lines can carry it.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// For returns logger enriched with the request id found in ctx, if any.
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return logger.With(zap.String("request_id", rid))
	}
	return logger
}

// Order fields used across the order and payment flows.
func OrderID(id uint) zap.Field      { return zap.Uint("order_id", id) }
func Step(step string) zap.Field     { return zap.String("step", step) }
func Status(status string) zap.Field { return zap.String("status", status) }
