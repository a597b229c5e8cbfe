package channel

import "time"

// backoff is a bounded linear backoff: attempt n waits base*n.
type backoff struct {
	base    time.Duration
	max     int
	attempt int
}

func newBackoff(base time.Duration, max int) *backoff {
	return &backoff{base: base, max: max}
}

// Next advances the attempt counter and returns its delay. ok is false once
// the cap is reached; the counter is left unchanged in that case.
func (b *backoff) Next() (delay time.Duration, ok bool) {
	if b.attempt >= b.max {
		return 0, false
	}
	b.attempt++
	return b.base * time.Duration(b.attempt), true
}

// Reset sets the attempt counter back to zero.
func (b *backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of reconnects scheduled since the last reset.
func (b *backoff) Attempt() int {
	return b.attempt
}
