// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
)

const defaultPattern = "ourchat-%Y-%m-%d.log"

type Config struct {
	// Path is the log directory. Empty logs to stdout only.
	Path         string
	RotationTime string
	MaxAge       string
	Pattern      string
	Level        string
	Format       string // text or json
}

func (cfg *Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.Level)) {
		return errors.New("invalid log level: " + cfg.Level)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(cfg.Format)) {
		return errors.New("invalid log format: " + cfg.Format)
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil
	}
	if _, err := time.ParseDuration(cfg.RotationTime); err != nil {
		return errors.Wrap(err, "invalid rotation time")
	}
	if _, err := time.ParseDuration(cfg.MaxAge); err != nil {
		return errors.Wrap(err, "invalid max age")
	}
	return nil
}

// Init installs the default logger.
func Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if strings.TrimSpace(cfg.Path) != "" {
		fileWriter, err := fileLogger(cfg)
		if err != nil {
			return errors.Wrap(err, "configuring file logger")
		}
		out = io.MultiWriter(os.Stdout, fileWriter)
	}

	slog.SetDefault(slog.New(newHandler(out, cfg)))
	return nil
}

func newHandler(out io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: mapLevel(cfg.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(a.Key, t.Format("2006-01-02 15:04:05.000000"))
				}
			}
			return a
		},
	}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

func fileLogger(cfg Config) (io.Writer, error) {
	rotation, _ := time.ParseDuration(cfg.RotationTime)
	maxAge, _ := time.ParseDuration(cfg.MaxAge)

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = defaultPattern
	}

	return rotatelogs.New(
		filepath.Join(cfg.Path, pattern),
		rotatelogs.WithRotationTime(rotation),
		rotatelogs.WithMaxAge(maxAge),
	)
}

func mapLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the default logger tagged with a module name.
func Logger(module string) *slog.Logger {
	return slog.Default().With(slog.String("module", module))
}
