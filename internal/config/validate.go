package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.API.BaseURL == "" {
		errs = append(errs, ValidationError{"api.base_url", "required"})
	} else if u, err := url.Parse(cfg.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", "must be an absolute http(s) URL"})
	}
	if cfg.API.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{"api.timeout_seconds", "must not be negative"})
	}

	d := cfg.Discovery
	if d.InitialBatch < 1 {
		errs = append(errs, ValidationError{"discovery.initial_batch", "must be at least 1"})
	}
	if d.PrefetchBatch < 1 {
		errs = append(errs, ValidationError{"discovery.prefetch_batch", "must be at least 1"})
	}
	if d.LowWaterMark < 0 {
		errs = append(errs, ValidationError{"discovery.low_water_mark", "must not be negative"})
	}

	g := cfg.Gesture
	if g.SwipeThreshold <= 0 {
		errs = append(errs, ValidationError{"gesture.swipe_threshold", "must be positive"})
	}
	if g.ScreenWidth <= 0 || g.ScreenHeight <= 0 {
		errs = append(errs, ValidationError{"gesture.screen_width/screen_height", "must be positive"})
	} else if g.SwipeThreshold >= g.ScreenWidth {
		errs = append(errs, ValidationError{"gesture.swipe_threshold", "must be smaller than screen_width"})
	}
	if g.MaxRotationDegrees < 0 || g.MaxRotationDegrees > 90 {
		errs = append(errs, ValidationError{"gesture.max_rotation_degrees", "must be between 0 and 90"})
	}

	// Validate outbox config (only if enabled)
	if cfg.Outbox.Enabled {
		switch cfg.Outbox.Backend {
		case "memory":
		case "redis":
			if cfg.Outbox.RedisURL == "" || strings.HasPrefix(cfg.Outbox.RedisURL, "${") {
				errs = append(errs, ValidationError{"outbox.redis_url", "required when backend is 'redis'"})
			}
		default:
			errs = append(errs, ValidationError{"outbox.backend", "must be 'memory' or 'redis'"})
		}
		if cfg.Outbox.MaxAttempts < 1 {
			errs = append(errs, ValidationError{"outbox.max_attempts", "must be at least 1"})
		}
	}

	if cfg.RateLimits.APIRPS < 0 {
		errs = append(errs, ValidationError{"rate_limits.api_requests_per_second", "must not be negative"})
	}

	return errs
}
