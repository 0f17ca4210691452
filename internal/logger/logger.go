package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/tenantcare/auth-service/internal/pkg/context"
)

// Logger is the process-wide logger. It is a disabled logger until Init runs,
// so packages and tests that never initialise it stay quiet.
var Logger = zerolog.Nop()

// Init configures Logger for service on stdout from LOG_LEVEL and LOG_FORMAT.
func Init(service string) {
	InitWithWriter(os.Stdout, service)
}

// InitWithWriter is Init with an explicit sink. Every line carries the
// service name so the API and resetctl can share a log pipeline.
func InitWithWriter(w io.Writer, service string) {
	Logger = zerolog.New(formatWriter(w, os.Getenv("LOG_FORMAT"))).
		Level(levelFromEnv(os.Getenv("LOG_LEVEL"))).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	zlog.Logger = Logger
}

// levelFromEnv defaults to info for empty or unknown values.
func levelFromEnv(v string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v)))
	if err != nil || v == "" {
		return zerolog.InfoLevel
	}
	return level
}

// formatWriter returns w for "json" and a console writer otherwise.
func formatWriter(w io.Writer, format string) io.Writer {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

// WithCtx returns the service logger enriched with request-scoped fields.
func WithCtx(ctx context.Context) *zerolog.Logger {
	lc := Logger.With()
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		lc = lc.Str("request_id", rid)
	}
	if tenant := appCtx.GetTenantSchema(ctx); tenant != "" {
		lc = lc.Str("tenant", tenant)
	}
	l := lc.Logger()
	return &l
}
