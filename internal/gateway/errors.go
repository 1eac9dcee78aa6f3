package gateway

import "errors"

// Lifecycle errors.
var (
	ErrGatewayNotStopped = errors.New("gateway is not in stopped state")
	ErrGatewayNotRunning = errors.New("gateway is not running")
	ErrNilConfig         = errors.New("configuration is required")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
