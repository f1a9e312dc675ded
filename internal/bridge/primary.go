// Package bridge keeps the two devices' views of a running session
// consistent: the primary (handheld) pushes full-state snapshots and
// advisory cursor pings, the satellite (wrist device) reports completed
// sets back. Synchronization is best-effort; the persisted store on the
// initiating device stays authoritative.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/civatrix/reptrack/internal/channel"
	"github.com/civatrix/reptrack/internal/session"
	"github.com/civatrix/reptrack/internal/store"
	"github.com/civatrix/reptrack/internal/workout"
)

// ErrNoActiveSession is returned by session operations before a workout
// has been started or resumed.
var ErrNoActiveSession = errors.New("no active session")

// Primary is the handheld side of the sync bridge. It owns the active
// session and its cursor: every mutation — local recording through the
// controller and inbound completion events from the satellite — runs
// under the same mutex, so the two sources can never interleave a write.
type Primary struct {
	store *store.Store
	link  channel.Link
	log   *slog.Logger

	mu       sync.Mutex
	active   *workout.Workout
	activeID uuid.UUID
	ctrl     *session.Controller
}

// NewPrimary wires the bridge onto the link. Call Activate before starting
// a session; sends before activation are dropped by the link.
func NewPrimary(st *store.Store, link channel.Link, log *slog.Logger) *Primary {
	p := &Primary{store: st, link: link, log: log}
	link.HandleMessage(p.handleMessage)
	return p
}

// Activate completes the channel handshake and replays the full state of
// the remembered active session, if any, so a satellite that missed the
// start still converges.
func (p *Primary) Activate(ctx context.Context) error {
	if err := p.link.Activate(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.sendWorkoutLocked()
	}
	return nil
}

// StartWorkout persists a freshly instantiated session, adopts it as the
// active one, and transmits its full flattened state. The persistence
// error is recoverable and returned; transmission failures are logged and
// swallowed.
func (p *Primary) StartWorkout(ctx context.Context, w *workout.Workout) error {
	if err := p.store.InsertWorkout(ctx, w); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.adoptLocked(w)
	p.sendWorkoutLocked()
	return nil
}

// ResumeWorkout adopts an already-persisted session and transmits its
// current full state.
func (p *Primary) ResumeWorkout(w *workout.Workout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adoptLocked(w)
	p.sendWorkoutLocked()
}

// adoptLocked installs the session and a fresh cursor controller. The
// cursor observer fires inside controller calls, which all hold p.mu, so
// the locked sender is safe to use directly.
func (p *Primary) adoptLocked(w *workout.Workout) {
	p.active = w
	p.activeID = w.ID
	p.ctrl = session.NewController(w)
	p.ctrl.OnCursorChange(func(exerciseIndex, setIndex int) {
		if exerciseIndex >= 0 {
			p.sendActiveSetLocked(exerciseIndex, setIndex)
		}
	})
}

// RecordReps writes value into the active slot, advances the cursor
// (pushing an advisory ping to the satellite), and flushes completion
// state to the store.
func (p *Primary) RecordReps(ctx context.Context, value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return ErrNoActiveSession
	}
	if err := p.ctrl.RecordReps(value); err != nil {
		return err
	}
	if err := p.store.SaveWorkoutSets(ctx, p.active); err != nil {
		return fmt.Errorf("persisting set: %w", err)
	}
	return nil
}

// Select moves the cursor to a chosen (exercise, set) location without
// recording anything, and pings the satellite with the new position.
func (p *Primary) Select(exerciseIndex, setIndex int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return ErrNoActiveSession
	}
	return p.ctrl.Select(exerciseIndex, setIndex)
}

// Cursor returns the active cursor. ok is false when no session is
// running or every set is recorded.
func (p *Primary) Cursor() (exerciseIndex, setIndex int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return 0, 0, false
	}
	return p.ctrl.Active()
}

// ActiveWorkout returns a copy of the remembered session, or nil. The
// copy stays consistent while the live session keeps changing.
func (p *Primary) ActiveWorkout() *workout.Workout {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	return p.active.Clone()
}

// sendWorkoutLocked transmits the whole flattened dataset as the latest
// context.
func (p *Primary) sendWorkoutLocked() {
	payload, err := json.Marshal(p.active.WatchData())
	if err != nil {
		p.log.Error("encoding workout for sync", "workout", p.activeID, "error", err)
		return
	}
	if err := p.link.SetContext(channel.TagData, payload); err != nil {
		p.log.Error("sending workout", "workout", p.activeID, "error", err)
	}
}

// sendActiveSetLocked pushes an advisory cursor update: the global
// flattened index of the exercise's first record plus the local set
// offset. It never mutates completion state on either side.
func (p *Primary) sendActiveSetLocked(exerciseIndex, setIndex int) {
	e := &p.active.Exercises[exerciseIndex]
	index := setIndex
	for i, d := range p.active.WatchData() {
		if d.Name == e.LongName() {
			index = i + setIndex
			break
		}
	}

	payload, err := json.Marshal(index)
	if err != nil {
		p.log.Error("encoding active set", "error", err)
		return
	}
	if err := p.link.SetContext(channel.TagActiveSet, payload); err != nil {
		p.log.Error("sending active set", "index", index, "error", err)
	}
}

// handleMessage applies a completion event reported by the satellite:
// a single-slot write into the remembered session, then a flush to the
// store. The local cursor is deliberately left alone; it reconverges on
// the next full sync. Failures are logged and never crash the process.
func (p *Primary) handleMessage(msg channel.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		p.log.Warn("completion event with no active session",
			"exercise", msg.ExerciseIndex, "set", msg.SetIndex)
		return
	}

	p.log.Info("completion event received",
		"workout", p.activeID,
		"exercise", msg.ExerciseIndex,
		"set", msg.SetIndex,
		"reps", msg.CompletedReps)

	if err := p.active.IngestSetData(msg.ExerciseIndex, msg.SetIndex, msg.CompletedReps); err != nil {
		p.log.Error("applying completion event", "error", err)
		return
	}
	if err := p.store.SaveWorkoutSets(context.Background(), p.active); err != nil {
		p.log.Error("persisting completion event", "workout", p.activeID, "error", err)
	}
}
