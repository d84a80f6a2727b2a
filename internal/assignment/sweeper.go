package assignment

import (
	"context"
	"log"
	"time"
)

// Sweeper purges assignments and temporary teachers past their time-to-live.
// It runs synchronously at the start of read and write paths rather than on a
// timer, and is safe to call repeatedly: each call evaluates its own cutoff
// against the wall clock and deletes only what matches.
type Sweeper struct {
	store Store
	ttl   time.Duration
}

// NewSweeper creates a sweeper with one canonical TTL applied to both
// assignment age and guest expiry.
func NewSweeper(store Store, ttl time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = 3 * time.Hour
	}
	return &Sweeper{store: store, ttl: ttl}
}

// Sweep deletes expired guests first, then expired assignments. Guest expiry
// is judged by the age of the guest's most recent assignment, so it has to be
// checked while those assignments still exist.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.ttl)

	guests, err := s.store.DeleteExpiredGuests(ctx, cutoff)
	if err != nil {
		return err
	}
	assignments, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if guests > 0 || assignments > 0 {
		log.Printf("sweep: removed %d expired guests, %d expired assignments", guests, assignments)
	}
	return nil
}
