package resilience

import "time"

// Backoff returns the pause taken after the given failed attempt (1-based).
type Backoff func(failedAttempt int) time.Duration

// LinearBackoff waits base × n after the n-th failure: base, 2×base, 3×base...
func LinearBackoff(base time.Duration) Backoff {
	return func(failedAttempt int) time.Duration {
		if failedAttempt < 1 {
			failedAttempt = 1
		}
		return base * time.Duration(failedAttempt)
	}
}

type Config struct {
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	// Backoff overrides the linear schedule built from RetryBaseDelay.
	Backoff Backoff

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts: 3,
		RetryBaseDelay:   1 * time.Second,

		BreakerEnabled:          false,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryBaseDelay < 0 {
		out.RetryBaseDelay = 0
	}
	if out.Backoff == nil {
		out.Backoff = LinearBackoff(out.RetryBaseDelay)
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
