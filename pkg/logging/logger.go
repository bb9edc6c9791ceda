// Package logging builds the application logger and keeps secrets out of it.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates the root logger for the given environment. Local environments
// get human-readable console output; everything else gets JSON.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
