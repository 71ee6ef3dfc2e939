package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type (
	ctxKey       struct{}
	requestIDKey struct{}
)

// ToContext stores a request-scoped logger.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or the singleton when none is set.
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return L()
}

// WithRequestID tags ctx so work triggered by a request, such as queued
// mails, can be correlated with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Field helpers keep key names consistent across packages.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func CityID(v uint64) zap.Field { return zap.Uint64("city_id", v) }
func PointOfInterestID(v uint64) zap.Field { return zap.Uint64("poi_id", v) }
func UserName(v string) zap.Field { return zap.String("user_name", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Err(err error) zap.Field { return zap.Error(err) }
