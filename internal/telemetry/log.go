// Package telemetry wires structured logging (zerolog) and Prometheus
// metrics — the ambient observability stack the distilled spec is silent
// on but the teacher's domain (a netflow collector) always carries.
package telemetry

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger returns a console-friendly zerolog.Logger at the given level
// ("debug", "info", "warn", "error"); an unrecognised level defaults to
// info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}
