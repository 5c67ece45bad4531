package admission

import (
	"sync/atomic"
	"time"
)

// RateLimiter gates how often a new streaming connection may be
// accepted (spec.md §4.C step 14, §9 Design Notes). It is a lock-free
// compare-and-swap loop over the last-accepted timestamp rather than a
// mutex -- Design Notes §9 is explicit that the contract is "serialize
// the read-modify-write", not any particular lock type, and a handful of
// CAS retries under contention is cheaper than parking on a mutex for
// something this small.
type RateLimiter struct {
	interval         time.Duration
	lastAcceptedNano atomic.Int64
}

// NewRateLimiter builds a limiter enforcing interval between accepted
// connections. An interval <= 0 disables rate limiting entirely.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// TryAccept attempts to record an acceptance at time now. It returns
// ok=true if the caller may proceed (and the limiter's clock has been
// advanced to now), or ok=false with the remaining wait if the interval
// has not yet elapsed.
func (rl *RateLimiter) TryAccept(now time.Time) (ok bool, retryAfter time.Duration) {
	if rl.interval <= 0 {
		return true, 0
	}

	for {
		last := rl.lastAcceptedNano.Load()

		if last == 0 {
			// First ever call: there is no previous acceptance to measure
			// against, so the very first connection is never delayed.
			if rl.lastAcceptedNano.CompareAndSwap(0, now.UnixNano()) {
				return true, 0
			}
			continue
		}

		elapsed := now.Sub(time.Unix(0, last))
		if elapsed < rl.interval {
			return false, rl.interval - elapsed
		}

		if rl.lastAcceptedNano.CompareAndSwap(last, now.UnixNano()) {
			return true, 0
		}
		// lost the race to a concurrent acceptance; reload and retry
	}
}
