package config

import "errors"

var (
	ErrMissingDomain       = errors.New("widget domain is required (set MEET_WIDGET_DOMAIN env var or --domain flag)")
	ErrInvalidPollInterval = errors.New("session poll interval must be positive")
	ErrInvalidPollAttempts = errors.New("session max poll attempts must be positive")
)
