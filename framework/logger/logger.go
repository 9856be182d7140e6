// Package logger builds the zerolog loggers handed to the container, the
// capability loader and the HTTP access log.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-ioc/framework/config"
)

// Options configures the logger
type Options struct {
	Level      string
	Format     string // console | json
	Service    string
	Writer     io.Writer
	WithCaller bool
}

// FromConfig maps the LOG_* settings of cfg onto Options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Service:    cfg.App.Name,
		WithCaller: cfg.App.Debug,
	}
}

// New builds a logger from opt. Output goes to stdout unless opt.Writer is set.
func New(opt Options) zerolog.Logger {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opt.Writer != nil}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	return log
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger { return zerolog.Nop() }

// parseLevel supports string-only levels
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
