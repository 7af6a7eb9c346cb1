package resilience

import "time"

// FromRetryConfig builds a RetryConfig from flat config values. Zero or
// negative values keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return cfg
}

// BreakerFromConfig builds a Breaker from flat config values. Zero or
// negative values keep the defaults.
func BreakerFromConfig(name string, failureThreshold, resetTimeoutSecs int) *Breaker {
	return NewBreaker(name, failureThreshold, time.Duration(resetTimeoutSecs)*time.Second)
}
