package domain

import "errors"

var (
	ErrMissingCredential   = errors.New("missing provider credential")
	ErrProviderError       = errors.New("provider error")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker open")
	ErrAlreadyReported     = errors.New("usage already reported")
)
