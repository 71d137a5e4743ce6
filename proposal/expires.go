package proposal

import "time"

// Expires resolves a token's expiry timestamp. Resolution happens at save
// time, so a strategy may depend on state that is only settled then.
type Expires interface {
	ExpiresAt(now time.Time) time.Time
}

// ExpiresIn expires a fixed duration after creation.
type ExpiresIn time.Duration

func (d ExpiresIn) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(d))
}

// ExpiresFunc adapts a zero-argument resolver.
type ExpiresFunc func() time.Time

func (f ExpiresFunc) ExpiresAt(time.Time) time.Time { return f() }

// DefaultExpiry is applied when no strategy is configured: one year.
var DefaultExpiry Expires = ExpiresIn(365 * 24 * time.Hour)
