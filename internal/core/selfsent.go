package core

import "time"

type selfSentEntry struct {
	dest string
	text string
	at   time.Time
}

// SelfSent remembers (destination, text) pairs this session sent so their
// remote echo can be dropped. It is a multiset; entries older than the TTL
// are pruned before each match.
type SelfSent struct {
	ttl     time.Duration
	entries []selfSentEntry
}

// NewSelfSent returns an empty record. A non-positive ttl keeps entries forever.
func NewSelfSent(ttl time.Duration) *SelfSent {
	return &SelfSent{ttl: ttl}
}

// Record adds one pending echo.
func (r *SelfSent) Record(dest, text string, now time.Time) {
	r.entries = append(r.entries, selfSentEntry{dest: dest, text: text, at: now})
}

// Consume removes one entry matching dest and text and reports whether it existed.
func (r *SelfSent) Consume(dest, text string, now time.Time) bool {
	r.prune(now)
	for i, e := range r.entries {
		if e.dest == dest && e.text == text {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Reset forgets every entry.
func (r *SelfSent) Reset() {
	r.entries = nil
}

// Len returns the number of pending entries.
func (r *SelfSent) Len() int {
	return len(r.entries)
}

func (r *SelfSent) prune(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	cutoff := now.Add(-r.ttl)
	keep := r.entries[:0]
	for _, e := range r.entries {
		if e.at.After(cutoff) {
			keep = append(keep, e)
		}
	}
	clear(r.entries[len(keep):])
	r.entries = keep
}
