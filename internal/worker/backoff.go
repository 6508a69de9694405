package worker

import "time"

// Backoff yields the pause after each consecutive failure: Initial, then
// doubling up to Max. A zero Initial never pauses.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	next time.Duration
}

// Next returns the pause for the current failure and advances the sequence.
func (b *Backoff) Next() time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if b.next == 0 {
		b.next = b.Initial
	}
	d := b.next
	b.next = min(b.next*2, max(b.Max, b.Initial))
	return d
}

// Reset restarts the sequence after a success.
func (b *Backoff) Reset() { b.next = 0 }
