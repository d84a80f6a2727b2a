package assignment

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"rollcall/internal/roster"
)

// RosterSource supplies the teacher pool and the venues flagged for the
// current round.
type RosterSource interface {
	ListTeachers(ctx context.Context) ([]roster.Teacher, error)
	ListRequiredVenues(ctx context.Context) ([]roster.Venue, error)
}

// Engine computes randomized teacher-to-venue rounds. It owns the rotation
// memory: the set of teacher identifiers placed in the immediately preceding
// round, used to push just-served teachers to the back of the next draw.
type Engine struct {
	store   Store
	roster  RosterSource
	sweeper *Sweeper

	mu         sync.Mutex
	lastPlaced map[string]struct{}
	rng        *rand.Rand
}

// NewEngine creates an engine. A nil rng gets a time-seeded source; tests
// inject a fixed seed for deterministic draws.
func NewEngine(store Store, src RosterSource, sweeper *Sweeper, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:      store,
		roster:     src,
		sweeper:    sweeper,
		lastPlaced: make(map[string]struct{}),
		rng:        rng,
	}
}

// ReassignAll replaces the whole assignment set with a fresh round.
//
// Candidate order is guests, then permanents who sat out the last round, then
// permanents who served in it, each pool shuffled. Venues consume candidates
// from the front up to their quota; running out of candidates leaves later
// venues under-staffed, which is accepted silently. With no candidates or no
// required venues the call is a deliberate no-op.
func (e *Engine) ReassignAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.sweeper.Sweep(ctx); err != nil {
		return err
	}

	teachers, err := e.roster.ListTeachers(ctx)
	if err != nil {
		return err
	}
	venues, err := e.roster.ListRequiredVenues(ctx)
	if err != nil {
		return err
	}

	var guests, fresh, repeats []roster.Teacher
	for _, t := range teachers {
		switch {
		case t.Temporary:
			guests = append(guests, t)
		case e.wasPlaced(t.ID):
			repeats = append(repeats, t)
		default:
			fresh = append(fresh, t)
		}
	}
	e.shuffle(guests)
	e.shuffle(fresh)
	e.shuffle(repeats)

	candidates := append(append(guests, fresh...), repeats...)
	if len(candidates) == 0 || len(venues) == 0 {
		log.Printf("reassign: no teachers or no required venues, nothing to do")
		return nil
	}

	now := time.Now().UTC()
	placed := make(map[string]struct{})
	var round []Assignment
	next := 0
	for _, v := range venues {
		for seat := 0; seat < v.StaffCount && next < len(candidates); seat++ {
			t := candidates[next]
			next++
			round = append(round, Assignment{
				TeacherID:  t.ID,
				VenueID:    v.ID,
				Status:     StatusAbsent,
				AssignedAt: now,
			})
			placed[t.ID] = struct{}{}
		}
	}

	if err := e.store.ReplaceAll(ctx, round); err != nil {
		return err
	}
	// Rotation memory only advances once the round is committed, so a failed
	// replace leaves both store and memory on the previous round.
	e.lastPlaced = placed
	return nil
}

// LastPlaced reports whether a teacher served in the previous round.
func (e *Engine) LastPlaced(teacherID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wasPlaced(teacherID)
}

func (e *Engine) wasPlaced(teacherID string) bool {
	_, ok := e.lastPlaced[teacherID]
	return ok
}

func (e *Engine) shuffle(pool []roster.Teacher) {
	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
}
