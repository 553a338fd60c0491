package exception

import "errors"

var (
	ErrRingFull          = errors.New("ring: insufficient capacity")
	ErrRingSizeNotPow2   = errors.New("ring: size must be a power of two")
	ErrRingInvalidClaim  = errors.New("ring: claim size must be between 1 and ring size")
	ErrProcessorRunning  = errors.New("processor: already running")
	ErrProcessorNoRing   = errors.New("processor: no ring attached")
	ErrUnknownWaitPolicy = errors.New("processor: unknown wait strategy")
	ErrQueueFull         = errors.New("queue: full")
	ErrQueueClosed       = errors.New("queue: closed")
)
