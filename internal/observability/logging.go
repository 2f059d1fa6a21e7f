package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// serviceName tags every log line so aggregated streams from the engine
// and its sidecars stay separable.
const serviceName = "riskengine"

// NewLogger creates a structured JSON logger for one engine component
// (ingest, core, persistence). Level comes from RISK_LOG_LEVEL (default
// info); RISK_LOG_PRETTY=1 switches to the human-readable console writer
// for local runs.
func NewLogger(component string) zerolog.Logger {
	level := parseLogLevel(os.Getenv("RISK_LOG_LEVEL"))

	var out = zerolog.New(os.Stdout)
	if os.Getenv("RISK_LOG_PRETTY") == "1" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return out.
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("component", component).
		Logger()
}

func parseLogLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	// Timestamps in RFC3339 with nanosecond precision.
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
