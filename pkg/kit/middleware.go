package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RequestID assigns a fresh request id unless the transport already set one.
func RequestID() Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			if GetRequestID(ctx) == "" {
				ctx = WithRequestID(ctx, uuid.NewString())
			}
			return next(ctx, request)
		}
	}
}

// Logging records one line per call with its outcome and latency.
// Failures the caller caused are logged at Info, the rest at Error.
func Logging(logger *slog.Logger, op string, isClientErr func(error) bool) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			ctx = WithOperation(ctx, op)
			start := time.Now()
			resp, err := next(ctx, request)

			attrs := []any{
				"op", op,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			switch {
			case err == nil:
				logger.DebugContext(ctx, "call ok", attrs...)
			case isClientErr != nil && isClientErr(err):
				logger.InfoContext(ctx, "call rejected", append(attrs, "error", err)...)
			default:
				logger.ErrorContext(ctx, "call failed", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}
