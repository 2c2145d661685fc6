package errors

import "errors"

var (
	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")

	// ErrLeaseLost is reported when a flush lease expired and was taken
	// over by another holder while work was still in progress.
	ErrLeaseLost = errors.New("syncraft: flush lease lost")

	// ErrInvalidInterval is returned when a non-positive flush interval
	// is provided.
	ErrInvalidInterval = errors.New("syncraft: flush interval must be positive")

	// ErrInvalidRenewInterval is returned when the lease renew interval
	// is not strictly shorter than the lease TTL.
	ErrInvalidRenewInterval = errors.New("syncraft: renew interval must be positive and shorter than the lease ttl")
)
