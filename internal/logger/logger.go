package logger

import (
	"go.uber.org/zap"
)

// NewNamed builds a named zap logger for the given environment. Production
// gets JSON output; everything else gets the development console encoder.
func NewNamed(env, name string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named(name), nil
}
