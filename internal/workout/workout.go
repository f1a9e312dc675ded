package workout

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExerciseTemplate is one row of a workout template. Immutable once its
// template has been committed; Order is unique within the template and
// defines execution order.
type ExerciseTemplate struct {
	Name     string   `json:"name"`
	Order    int      `json:"order"`
	SetCount int      `json:"setCount"`
	Unit     Unit     `json:"unit"`
	RepRange RepRange `json:"repRange"`
}

// NewExercise instantiates a runtime exercise with every set slot empty.
func (t ExerciseTemplate) NewExercise() Exercise {
	return Exercise{
		Name:          t.Name,
		Order:         t.Order,
		Unit:          t.Unit,
		RepRange:      t.RepRange,
		RepsCompleted: make([]*int, t.SetCount),
	}
}

// WorkoutTemplate is a reusable, user-authored workout blueprint. It records
// no progress itself.
type WorkoutTemplate struct {
	ID        uuid.UUID
	Name      string
	Exercises []ExerciseTemplate
}

// SortedExercises returns the template's exercises in ascending Order.
// Order values need not be contiguous.
func (t *WorkoutTemplate) SortedExercises() []ExerciseTemplate {
	out := make([]ExerciseTemplate, len(t.Exercises))
	copy(out, t.Exercises)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NewWorkout instantiates a fresh session from the template: name copied,
// date stamped now, one empty exercise per template row in template order.
// The template itself is untouched.
func (t *WorkoutTemplate) NewWorkout() *Workout {
	return t.NewWorkoutAt(time.Now())
}

// NewWorkoutAt is NewWorkout with an explicit session date.
func (t *WorkoutTemplate) NewWorkoutAt(date time.Time) *Workout {
	sorted := t.SortedExercises()
	exercises := make([]Exercise, len(sorted))
	for i, et := range sorted {
		exercises[i] = et.NewExercise()
	}
	return &Workout{
		ID:        uuid.New(),
		Name:      t.Name,
		Date:      date,
		Exercises: exercises,
	}
}

// Prototype projects the template back into an editable draft. The
// projection is lossless: committing an unmodified prototype reproduces the
// template's rows.
func (t *WorkoutTemplate) Prototype() *Prototype {
	p := &Prototype{Name: t.Name}
	for _, et := range t.SortedExercises() {
		pe := &PrototypeExercise{
			Name:          et.Name,
			SetCount:      intPtr(et.SetCount),
			Unit:          et.Unit,
			RepRangeLower: intPtr(et.RepRange.Lower),
			RepRangeUpper: intPtr(et.RepRange.Upper),
		}
		if v, ok := et.Unit.Value(); ok {
			pe.UnitValue = intPtr(v)
		}
		p.Exercises = append(p.Exercises, pe)
	}
	return p
}

// Exercise is one runtime exercise of a session. RepsCompleted has one slot
// per set; a nil slot has not been performed yet.
type Exercise struct {
	Name          string   `json:"name"`
	Order         int      `json:"order"`
	Unit          Unit     `json:"unit"`
	RepRange      RepRange `json:"repRange"`
	RepsCompleted []*int   `json:"repsCompleted"`
}

// AllComplete reports whether every set slot has been filled.
func (e *Exercise) AllComplete() bool {
	for _, r := range e.RepsCompleted {
		if r == nil {
			return false
		}
	}
	return true
}

// LongName is the display name including the load for weighted exercises.
func (e *Exercise) LongName() string {
	if e.Unit.Kind == UnitWeightedReps {
		return e.Name + " " + e.WeightDescription()
	}
	return e.Name
}

// WeightDescription renders the exercise's load or time target.
func (e *Exercise) WeightDescription() string {
	switch e.Unit.Kind {
	case UnitWeightedReps:
		return fmt.Sprintf("%d lbs", e.Unit.Load)
	case UnitBodyweightReps:
		return "body"
	case UnitTimedSeconds:
		return e.RepRange.String() + " sec"
	case UnitTimedMinutes:
		return e.RepRange.String() + " min"
	}
	return ""
}

// Workout is one concrete performance of a template. Exercise order is
// fixed at instantiation and never re-sorted by mutation.
type Workout struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Date      time.Time  `json:"date"`
	Exercises []Exercise `json:"exercises"`
}

// DisplayName combines the workout name with its session date.
func (w *Workout) DisplayName() string {
	return w.Name + " " + w.Date.Format("Jan 2, 2006")
}

// Clone returns a copy of the session that stays consistent while the
// original keeps changing. Recorded values are never mutated in place —
// every write installs a fresh pointer — so the slots can be shared.
func (w *Workout) Clone() *Workout {
	out := *w
	out.Exercises = make([]Exercise, len(w.Exercises))
	for i, e := range w.Exercises {
		ec := e
		ec.RepsCompleted = make([]*int, len(e.RepsCompleted))
		copy(ec.RepsCompleted, e.RepsCompleted)
		out.Exercises[i] = ec
	}
	return &out
}

// AllComplete reports whether every exercise has every set filled. Always
// recomputed from the slots, never cached.
func (w *Workout) AllComplete() bool {
	for i := range w.Exercises {
		if !w.Exercises[i].AllComplete() {
			return false
		}
	}
	return true
}

// WatchData flattens the session into its wire projection: one record per
// (exercise, set) pair, in exercise order then set order.
func (w *Workout) WatchData() []SetData {
	var out []SetData
	for exerciseIndex := range w.Exercises {
		e := &w.Exercises[exerciseIndex]
		total := len(e.RepsCompleted)
		for setIndex, reps := range e.RepsCompleted {
			out = append(out, SetData{
				Name:          e.LongName(),
				SetNumber:     fmt.Sprintf("%d/%d", setIndex+1, total),
				RepRange:      e.RepRange,
				ExerciseIndex: exerciseIndex,
				SetIndex:      setIndex,
				Unit:          e.Unit,
				CompletedReps: reps,
			})
		}
	}
	return out
}

// IngestSetData writes a single completed-set value reported by the paired
// device. Re-applying the same event overwrites the slot with the same
// value. Out-of-range indices are rejected.
func (w *Workout) IngestSetData(exerciseIndex, setIndex, completedReps int) error {
	if exerciseIndex < 0 || exerciseIndex >= len(w.Exercises) {
		return fmt.Errorf("exercise index %d out of range [0,%d)", exerciseIndex, len(w.Exercises))
	}
	e := &w.Exercises[exerciseIndex]
	if setIndex < 0 || setIndex >= len(e.RepsCompleted) {
		return fmt.Errorf("set index %d out of range [0,%d) for exercise %q", setIndex, len(e.RepsCompleted), e.Name)
	}
	reps := completedReps
	e.RepsCompleted[setIndex] = &reps
	return nil
}

// SetData is the flattened, device-transport projection of one set.
// Identity is the (ExerciseIndex, SetIndex) pair.
type SetData struct {
	Name          string   `json:"name"`
	SetNumber     string   `json:"setNumber"`
	RepRange      RepRange `json:"repRange"`
	ExerciseIndex int      `json:"exerciseIndex"`
	SetIndex      int      `json:"setIndex"`
	Unit          Unit     `json:"unit"`
	CompletedReps *int     `json:"completedReps"`
}

// FirstIncomplete locates the cursor position for a freshly received
// dataset: the first record with no completed value, or 0 if none remain.
func FirstIncomplete(data []SetData) int {
	for i, d := range data {
		if d.CompletedReps == nil {
			return i
		}
	}
	return 0
}

func intPtr(v int) *int { return &v }
