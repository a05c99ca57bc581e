package service

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
)

// ExpiresInCustom selects a caller supplied absolute expiry.
const ExpiresInCustom = "custom"

var expirationPresets = map[string]time.Duration{
	"1h":    time.Hour,
	"1hour": time.Hour,
	"1d":    24 * time.Hour,
	"1day":  24 * time.Hour,
	"1w":    7 * 24 * time.Hour,
	"1week": 7 * 24 * time.Hour,
}

// ExpirationCalculator turns an expiry request into an absolute timestamp.
type ExpirationCalculator struct {
	maxLifetime time.Duration
	now         func() time.Time
}

// NewExpirationCalculator builds a calculator. maxLifetime <= 0 disables the cap.
func NewExpirationCalculator(maxLifetime time.Duration, now func() time.Time) *ExpirationCalculator {
	if now == nil {
		now = time.Now
	}
	return &ExpirationCalculator{maxLifetime: maxLifetime, now: now}
}

// Calculate resolves expiresIn ("1h", "1d", "1w" or "custom") relative to the current time.
func (c *ExpirationCalculator) Calculate(expiresIn string, custom *time.Time) (time.Time, error) {
	return c.CalculateFrom(c.now(), expiresIn, custom)
}

// CalculateFrom resolves expiresIn relative to now.
func (c *ExpirationCalculator) CalculateFrom(now time.Time, expiresIn string, custom *time.Time) (time.Time, error) {
	now = now.UTC()
	key := strings.ToLower(strings.TrimSpace(expiresIn))

	if key == ExpiresInCustom {
		if custom == nil || custom.IsZero() {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "custom_expiration is required when expires_in is custom")
		}
		at := custom.UTC()
		if !at.After(now) {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "custom_expiration must be in the future")
		}
		if c.maxLifetime > 0 && at.Sub(now) > c.maxLifetime {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("custom_expiration exceeds the maximum lifetime of %s", c.maxLifetime))
		}
		return at, nil
	}

	d, ok := expirationPresets[key]
	if !ok {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "expires_in must be one of 1h, 1d, 1w or custom")
	}
	if c.maxLifetime > 0 && d > c.maxLifetime {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expires_in exceeds the maximum lifetime of %s", c.maxLifetime))
	}
	return now.Add(d), nil
}
