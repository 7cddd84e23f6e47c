package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/compozy/taskdef/pkg/logger"
)

// RegisterCustomValidators registers the log_level tag.
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("log_level", validateLogLevel)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch logger.LogLevel(strings.ToLower(fl.Field().String())) {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel, logger.DisabledLevel:
		return true
	default:
		return false
	}
}

// validateCustom covers rules struct tags cannot express.
func validateCustom(config *Config) error {
	if config.Tasks.DefaultTimeout < 0 {
		return fmt.Errorf("tasks.default_timeout must not be negative: %s", config.Tasks.DefaultTimeout)
	}
	if config.CEL.CacheSize > 1<<20 {
		return errors.New("cel.cache_size must not exceed 1048576 programs")
	}
	return nil
}
