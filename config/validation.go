package config

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/grovetools/hermes/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateURL("base_url", c.BaseURL, "http", "https"); err != nil {
		return err
	}

	if c.StreamURL != "" {
		if err := validateURL("stream_url", c.StreamURL, "http", "https", "ws", "wss"); err != nil {
			return err
		}
	}

	if c.OperatorID != "" {
		if _, err := uuid.Parse(c.OperatorID); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "operator_id must be a UUID").
				WithDetail("operator_id", c.OperatorID)
		}
	}

	if c.Reconnect != nil {
		if _, err := c.Reconnect.Delay(); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid reconnect settings")
		}
		if c.Reconnect.Multiplier < 1 || c.Reconnect.MaxAttempts < 1 {
			return errors.New(errors.ErrCodeConfigValidation, "reconnect multiplier and max_attempts must be at least 1").
				WithDetail("multiplier", c.Reconnect.Multiplier).
				WithDetail("max_attempts", c.Reconnect.MaxAttempts)
		}
	}

	if _, err := c.MockServer.EmitEvery(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid mock_server settings")
	}

	return nil
}

// validateURL requires an absolute URL with one of the allowed schemes.
func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("%s is not a valid URL", field)).
			WithDetail(field, raw)
	}
	if u.Host == "" {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be an absolute URL", field)).
			WithDetail(field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return errors.New(errors.ErrCodeConfigValidation,
		fmt.Sprintf("%s has unsupported scheme %q (want one of %v)", field, u.Scheme, schemes)).
		WithDetail(field, raw)
}
