// Package config provides configuration management for the pairs trader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/pairs-trader/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("significance", validateSignificance)
	_ = v.RegisterValidation("pair", validatePair)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration. Failures wrap models.ErrConfiguration.
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return models.WrapError(models.ErrConfiguration, formatValidationErrors(validationErrors))
		}
		return models.Errorf(models.ErrConfiguration, "validation failed: %v", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return models.WrapError(models.ErrConfiguration, err)
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateSignificance accepts the tabulated critical-value levels
func validateSignificance(fl validator.FieldLevel) bool {
	switch fl.Field().Float() {
	case 0.01, 0.05, 0.10:
		return true
	default:
		return false
	}
}

// validatePair validates an "A/B" pair identifier
func validatePair(fl validator.FieldLevel) bool {
	_, _, ok := SplitPair(fl.Field().String())
	return ok
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Backtest.StartDate != "" && cfg.Backtest.EndDate != "" {
		startDate, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
		if err != nil {
			return fmt.Errorf("invalid backtest start_date format: %w", err)
		}
		endDate, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
		if err != nil {
			return fmt.Errorf("invalid backtest end_date format: %w", err)
		}
		if !startDate.Before(endDate) {
			return fmt.Errorf("backtest start_date must be before end_date")
		}
	}

	if cfg.Backtest.RescreenSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Backtest.RescreenSchedule); err != nil {
			return fmt.Errorf("invalid rescreen_schedule: %w", err)
		}
	}

	if len(cfg.Universe.Pairs) == 0 && len(cfg.Universe.Instruments) == 1 {
		return fmt.Errorf("universe needs at least two instruments to derive pairs")
	}

	if cfg.Cointegration.MinHalfLife >= cfg.Cointegration.MaxHalfLife {
		return fmt.Errorf("min_half_life must be below max_half_life")
	}

	if cfg.Signals.ExitZ >= cfg.Signals.EntryZ {
		return fmt.Errorf("exit_z must be below entry_z")
	}
	if cfg.Signals.RegimeMin > 1 || cfg.Signals.RegimeMax < 1 {
		return fmt.Errorf("regime multiplier band [%g, %g] must contain 1", cfg.Signals.RegimeMin, cfg.Signals.RegimeMax)
	}
	if cfg.Signals.RegimeShortWindow >= cfg.Signals.RegimeLongWindow {
		return fmt.Errorf("regime_short_window must be below regime_long_window")
	}

	// Re-arm must sit strictly below the trigger to avoid flapping
	if cfg.Risk.RearmDrawdown >= cfg.Risk.MaxDrawdown {
		return fmt.Errorf("rearm_drawdown must be below max_drawdown")
	}
	if cfg.Sizing.ColdStartFraction > cfg.Sizing.MaxPositionFraction {
		return fmt.Errorf("cold_start_fraction cannot exceed max_position_fraction")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable error
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s=%s violated, got '%v'\n", field, tag, fieldError.Param(), value)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "significance":
			fmt.Fprintf(&b, "- Field '%s' must be one of: 0.01, 0.05, 0.10, got '%v'\n", field, value)
		case "pair":
			fmt.Fprintf(&b, "- Field '%s' must be a pair of distinct instruments 'A/B', got '%v'\n", field, value)
		case "datetime":
			fmt.Fprintf(&b, "- Field '%s' must be a date in YYYY-MM-DD format\n", field)
		default:
			fmt.Fprintf(&b, "- Field '%s' validation failed on '%s' tag\n", field, tag)
		}
	}
	return fmt.Errorf("%s", strings.TrimRight(b.String(), "\n"))
}
