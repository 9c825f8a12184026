// Package retry provides the bounded retry and exponential backoff logic
// used for Graph API fetches and asset downloads.
//
// The default policy runs five attempts with a deterministic schedule: the
// delay before attempt n+1 is 1.5^n seconds, capped at five minutes. There
// is no jitter, so a given failure sequence always produces the same
// delays.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return fetchPage(url)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//		Logger:      logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// Classified errors from pkg/errors drive the retry decision: transient
// types (network, rate limit, server error, embedded API error, parse
// failure) are retried, permanent types stop immediately.
package retry
