// Package logging builds the file-backed zap logger. The terminal belongs to
// the TUI, so nothing is ever logged to stdout or stderr.
package logging

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nhle/tempmail/internal/model"
)

// New returns a SugaredLogger appending JSON lines to cfg.Path at cfg.Level.
// An empty path disables logging.
func New(cfg model.LogConfig) (*zap.SugaredLogger, error) {
	if cfg.Path == "" {
		return zap.NewNop().Sugar(), nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", cfg.Level)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating log directory for %s", cfg.Path)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{cfg.Path}
	zc.ErrorOutputPaths = []string{cfg.Path}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Sampling = nil

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return logger.Sugar(), nil
}
