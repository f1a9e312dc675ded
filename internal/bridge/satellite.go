package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/civatrix/reptrack/internal/channel"
	"github.com/civatrix/reptrack/internal/ticker"
	"github.com/civatrix/reptrack/internal/workout"
)

// restTicks is the rest countdown started after each cursor advance.
const restTicks = 30

// Snapshot is the satellite's observable state: the flattened dataset, the
// cursor, and the rest countdown. Done is true once the cursor has moved
// past the last record.
type Snapshot struct {
	Data          []workout.SetData
	ActiveSet     int
	RestRemaining int // -1 when no countdown is running
}

// Done reports whether every record has been worked through or the
// session was explicitly completed.
func (s Snapshot) Done() bool {
	return len(s.Data) == 0 || s.ActiveSet < 0 || s.ActiveSet >= len(s.Data)
}

// Current returns the record under the cursor.
func (s Snapshot) Current() (workout.SetData, bool) {
	if s.Done() {
		return workout.SetData{}, false
	}
	return s.Data[s.ActiveSet], true
}

// Satellite is the wrist-device side of the sync bridge: a cache of the
// primary's flattened dataset plus an independent cursor. It never owns
// the session; completion events flow back over the message channel.
type Satellite struct {
	link channel.Link
	tick *ticker.Ticker
	log  *slog.Logger

	mu            sync.Mutex
	data          []workout.SetData
	activeSet     int
	restRemaining int
	restGen       int
	stopRest      func()
	onChange      func(Snapshot)
}

// NewSatellite wires the satellite model onto the link and cadence ticker.
func NewSatellite(link channel.Link, tick *ticker.Ticker, log *slog.Logger) *Satellite {
	s := &Satellite{link: link, tick: tick, log: log, restRemaining: -1}
	link.HandleContext(s.handleContext)
	return s
}

// OnChange registers the snapshot observer, replacing any previous one.
// It is invoked outside the satellite's lock.
func (s *Satellite) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Snapshot returns a copy of the current state for polling consumers.
func (s *Satellite) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Satellite) snapshotLocked() Snapshot {
	data := make([]workout.SetData, len(s.data))
	copy(data, s.data)
	return Snapshot{Data: data, ActiveSet: s.activeSet, RestRemaining: s.restRemaining}
}

// handleContext applies an inbound context payload. A full sync replaces
// the dataset and resets the cursor to the first incomplete record; an
// active-set ping moves only the cursor, and is discarded when it falls
// outside the current dataset (it may reference a sync that has not
// arrived yet). Decode failures are logged and swallowed.
func (s *Satellite) handleContext(tag string, payload []byte) {
	switch tag {
	case channel.TagData:
		var data []workout.SetData
		if err := json.Unmarshal(payload, &data); err != nil {
			s.log.Error("decoding workout data", "error", err)
			return
		}
		s.mu.Lock()
		s.data = data
		s.activeSet = workout.FirstIncomplete(data)
		s.cancelRestLocked()
		snap, fn := s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		s.notify(snap, fn)

	case channel.TagActiveSet:
		var index int
		if err := json.Unmarshal(payload, &index); err != nil {
			s.log.Error("decoding active set", "error", err)
			return
		}
		s.mu.Lock()
		if index < 0 || index >= len(s.data) {
			s.log.Warn("discarding out-of-range active set", "index", index, "records", len(s.data))
			s.mu.Unlock()
			return
		}
		s.activeSet = index
		s.startRestLocked()
		snap, fn := s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		s.notify(snap, fn)

	default:
		s.log.Debug("ignoring unknown context tag", "tag", tag)
	}
}

// CompleteSet reports the reps (or elapsed time) for the record under the
// cursor, records them locally, and advances. The outbound message is
// fire-and-forget: a transport failure is logged and the local state still
// advances, exactly like a set completed while out of range of the phone.
func (s *Satellite) CompleteSet(completedReps int) {
	s.mu.Lock()
	if s.activeSet < 0 || s.activeSet >= len(s.data) {
		s.mu.Unlock()
		return
	}
	record := s.data[s.activeSet]
	reps := completedReps
	s.data[s.activeSet].CompletedReps = &reps
	s.activeSet++
	if s.activeSet < len(s.data) {
		s.startRestLocked()
	} else {
		s.cancelRestLocked()
	}
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if err := s.link.Send(channel.Message{
		ExerciseIndex: record.ExerciseIndex,
		SetIndex:      record.SetIndex,
		CompletedReps: completedReps,
	}); err != nil {
		s.log.Error("sending completion event",
			"exercise", record.ExerciseIndex, "set", record.SetIndex, "error", err)
	}

	s.notify(snap, fn)
}

// Complete clears the session after the user finishes on the satellite.
func (s *Satellite) Complete() {
	s.mu.Lock()
	s.data = nil
	s.activeSet = -1
	s.cancelRestLocked()
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	s.notify(snap, fn)
}

// startRestLocked begins a fresh rest countdown, deregistering any running
// one from the ticker. The generation counter additionally keeps a
// countdown whose stop raced an in-flight tick from touching state
// registered for an earlier set.
func (s *Satellite) startRestLocked() {
	if s.stopRest != nil {
		s.stopRest()
	}
	s.restGen++
	gen := s.restGen
	s.restRemaining = restTicks
	s.stopRest = s.tick.Register(restTicks, func(remaining int) bool {
		s.mu.Lock()
		if gen != s.restGen {
			s.mu.Unlock()
			return false
		}
		s.restRemaining = remaining
		if remaining <= 0 {
			s.restRemaining = -1
		}
		snap, fn := s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		s.notify(snap, fn)
		return true
	})
}

func (s *Satellite) cancelRestLocked() {
	if s.stopRest != nil {
		s.stopRest()
		s.stopRest = nil
	}
	s.restGen++
	s.restRemaining = -1
}

func (s *Satellite) notify(snap Snapshot, fn func(Snapshot)) {
	if fn != nil {
		fn(snap)
	}
}
