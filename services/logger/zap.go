package logsvc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

// NewZap builds the structured logger: JSON in QA/PROD, colored console output otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if conf.Env == "DEV" || conf.Env == "TEST" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := conf.LogLevel
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	zl, err := cfg.Build(zap.Fields(zap.String("app", conf.AppName), zap.String("env", conf.Env)))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	zap.ReplaceGlobals(zl)
	return zl, nil
}
