// Package retry provides backoff and retry logic for handling transient
// failures in network operations.
//
// Features:
//   - Fixed and exponential backoff strategies
//   - Context support for cancellation
//   - Configurable retry predicates
//
// Basic usage:
//
//	// Fixed delay between login attempts
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.FixedBackoff{Delay: 5 * time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//		Logger:      logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Retry with a result
//	data, err := retry.DoWithResult(func() ([]byte, error) {
//		return source.Download(ctx, key)
//	}, cfg)
//
// Errors implementing Retryable() bool decide their own retryability; other
// errors are retried unless they are context cancellations.
package retry
