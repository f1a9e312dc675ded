// Package session owns the active-cursor state machine for a running
// workout: which exercise and set the user should perform next.
package session

import (
	"errors"
	"fmt"

	"github.com/civatrix/reptrack/internal/workout"
)

// ErrWorkoutComplete is returned by RecordReps once every set is filled.
var ErrWorkoutComplete = errors.New("workout already complete")

// Controller tracks the (active exercise, active set) cursor over one
// workout session and advances it as sets complete. Each device runs its
// own controller; cross-device agreement is advisory, via the sync bridge.
//
// Controller is not safe for concurrent use; callers serialize access the
// same way channel callbacks are serialized onto the session's goroutine.
type Controller struct {
	workout *workout.Workout

	// Cursor indices, -1 when no exercise/set is active (terminal state).
	activeExercise int
	activeSet      int

	// onCursorChange fires after every cursor move, including the move to
	// terminal. Used by the bridge to emit active-set pings.
	onCursorChange func(exerciseIndex, setIndex int)
}

// NewController initializes the cursor for a started or resumed session:
// the first incomplete exercise in order and the first empty slot within
// it, or terminal if everything is already filled.
func NewController(w *workout.Workout) *Controller {
	c := &Controller{workout: w, activeExercise: -1, activeSet: -1}
	for i := range w.Exercises {
		e := &w.Exercises[i]
		if e.AllComplete() {
			continue
		}
		c.activeExercise = i
		for slot, reps := range e.RepsCompleted {
			if reps == nil {
				c.activeSet = slot
				break
			}
		}
		break
	}
	return c
}

// OnCursorChange registers the cursor observer. Only one observer is
// supported; registering replaces the previous one.
func (c *Controller) OnCursorChange(fn func(exerciseIndex, setIndex int)) {
	c.onCursorChange = fn
}

// Workout returns the session the controller is driving.
func (c *Controller) Workout() *workout.Workout { return c.workout }

// Active returns the current cursor. ok is false in the terminal state.
func (c *Controller) Active() (exerciseIndex, setIndex int, ok bool) {
	if c.activeExercise < 0 {
		return 0, 0, false
	}
	return c.activeExercise, c.activeSet, true
}

// ActiveExercise returns the exercise under the cursor, or nil when done.
func (c *Controller) ActiveExercise() *workout.Exercise {
	if c.activeExercise < 0 {
		return nil
	}
	return &c.workout.Exercises[c.activeExercise]
}

// Done reports whether the cursor has reached the terminal state.
func (c *Controller) Done() bool { return c.activeExercise < 0 }

// RecordReps writes value into the active slot and advances the cursor:
// to the next slot of the same exercise, to the first slot of the next
// exercise when the current one is exhausted, or to terminal after the
// final exercise.
func (c *Controller) RecordReps(value int) error {
	if c.activeExercise < 0 {
		return ErrWorkoutComplete
	}

	e := &c.workout.Exercises[c.activeExercise]
	reps := value
	e.RepsCompleted[c.activeSet] = &reps

	if c.activeSet+1 < len(e.RepsCompleted) {
		c.activeSet++
		c.notify()
		return nil
	}

	if c.activeExercise+1 < len(c.workout.Exercises) {
		c.activeExercise++
		c.activeSet = 0
	} else {
		c.activeExercise = -1
		c.activeSet = -1
	}
	c.notify()
	return nil
}

// Select moves the cursor to a tapped (exercise, set) location without
// touching any recorded values. Only where the next RecordReps lands
// changes; completion semantics are unaffected.
func (c *Controller) Select(exerciseIndex, setIndex int) error {
	if exerciseIndex < 0 || exerciseIndex >= len(c.workout.Exercises) {
		return fmt.Errorf("exercise index %d out of range [0,%d)", exerciseIndex, len(c.workout.Exercises))
	}
	e := &c.workout.Exercises[exerciseIndex]
	if setIndex < 0 || setIndex >= len(e.RepsCompleted) {
		return fmt.Errorf("set index %d out of range [0,%d) for exercise %q", setIndex, len(e.RepsCompleted), e.Name)
	}
	c.activeExercise = exerciseIndex
	c.activeSet = setIndex
	c.notify()
	return nil
}

func (c *Controller) notify() {
	if c.onCursorChange != nil {
		c.onCursorChange(c.activeExercise, c.activeSet)
	}
}
