package llm

import "time"

// RetryConfig holds backoff configuration for model requests. The attempt
// budget itself is per invocation (maxRetries+1 total attempts).
type RetryConfig struct {
	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible backoff defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
