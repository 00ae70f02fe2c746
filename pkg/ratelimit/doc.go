// Package ratelimit paces outgoing work so the publisher stays under the
// API's tolerance.
//
// Available Implementations:
//
// Interval Limiter:
//   - Enforces a minimum gap between consecutive calls
//   - Used for the fixed pause between per-account publish runs
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Paces API requests inside a single account's session
//
// Interface:
//
// All rate limiters implement the Limiter interface:
//   - Wait(ctx) error - Block until a request is allowed or ctx is done
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// 2.5 second gap between accounts
//	limiter := ratelimit.NewIntervalLimiter(2500 * time.Millisecond)
//
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with the next account
package ratelimit
