// Package configuration parses the service's environment into a model.Cfg.
package configuration

import (
	"context"

	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"

	"github.com/creasty/defaults"
	"github.com/kelseyhightower/envconfig"
)

// New reads and validates the service configuration from the process
// environment.
func New(ctx context.Context) (*model.Cfg, error) {
	log := logger.NewSimple("Configuration")
	log.Info("reading environment")

	cfg := &model.Cfg{}

	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
