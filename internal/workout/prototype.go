package workout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// BuildField identifies which prototype field failed validation.
type BuildField int

const (
	FieldWorkoutName BuildField = iota
	FieldExerciseName
	FieldSetCount
	FieldUnitValue
	FieldRepRangeLower
	FieldRepRangeUpper
	FieldRepRange
)

// BuildError is a field-scoped validation failure from Prototype.Build.
// Row is the zero-based index of the offending exercise, or -1 for
// workout-level fields.
type BuildError struct {
	Field BuildField
	Row   int
}

func (e *BuildError) Error() string {
	switch e.Field {
	case FieldWorkoutName:
		return "missing name of workout"
	case FieldExerciseName:
		return fmt.Sprintf("missing name of exercise %d", e.Row+1)
	case FieldSetCount:
		return fmt.Sprintf("missing set count for exercise %d", e.Row+1)
	case FieldUnitValue:
		return fmt.Sprintf("missing unit value for exercise %d", e.Row+1)
	case FieldRepRangeLower:
		return fmt.Sprintf("missing rep range lower bound for exercise %d", e.Row+1)
	case FieldRepRangeUpper:
		return fmt.Sprintf("missing rep range upper bound for exercise %d", e.Row+1)
	case FieldRepRange:
		return fmt.Sprintf("rep range lower bound must be smaller than upper bound for exercise %d", e.Row+1)
	}
	return fmt.Sprintf("invalid field %d for exercise %d", e.Field, e.Row+1)
}

// AsBuildError unwraps err into a BuildError, if it is one.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	ok := errors.As(err, &be)
	return be, ok
}

// Prototype is the mutable draft of a workout template. Every exercise
// field is optional until Build validates the whole draft.
type Prototype struct {
	Name      string
	Exercises []*PrototypeExercise
}

// PrototypeExercise is one editable draft row. The unit kind is always
// selected; its numeric parameter stays separate so clearing the field in
// the editor does not lose the kind.
type PrototypeExercise struct {
	Name          string
	SetCount      *int
	UnitValue     *int
	Unit          Unit
	RepRangeLower *int
	RepRangeUpper *int
}

// NewPrototype returns an empty draft with the default unit preselected.
func NewPrototype() *Prototype {
	return &Prototype{}
}

// AddExercise appends a blank row and returns it.
func (p *Prototype) AddExercise() *PrototypeExercise {
	e := &PrototypeExercise{Unit: WeightedReps(1)}
	p.Exercises = append(p.Exercises, e)
	return e
}

// RemoveExercise deletes the row at the given index, if present.
func (p *Prototype) RemoveExercise(row int) {
	if row < 0 || row >= len(p.Exercises) {
		return
	}
	p.Exercises = append(p.Exercises[:row], p.Exercises[row+1:]...)
}

// Build validates the draft top-down, failing fast at the first violated
// field, and returns a committed template with Order assigned by row index.
// No template is produced on failure.
func (p *Prototype) Build() (*WorkoutTemplate, error) {
	if p.Name == "" {
		return nil, &BuildError{Field: FieldWorkoutName, Row: -1}
	}

	exercises := make([]ExerciseTemplate, 0, len(p.Exercises))
	for row, e := range p.Exercises {
		et, err := e.build(row)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, et)
	}

	return &WorkoutTemplate{ID: uuid.New(), Name: p.Name, Exercises: exercises}, nil
}

func (e *PrototypeExercise) build(row int) (ExerciseTemplate, error) {
	if e.Name == "" {
		return ExerciseTemplate{}, &BuildError{Field: FieldExerciseName, Row: row}
	}
	if e.SetCount == nil {
		return ExerciseTemplate{}, &BuildError{Field: FieldSetCount, Row: row}
	}
	if e.Unit.HasValue() && e.UnitValue == nil {
		return ExerciseTemplate{}, &BuildError{Field: FieldUnitValue, Row: row}
	}
	if e.RepRangeLower == nil {
		return ExerciseTemplate{}, &BuildError{Field: FieldRepRangeLower, Row: row}
	}
	if e.RepRangeUpper == nil {
		return ExerciseTemplate{}, &BuildError{Field: FieldRepRangeUpper, Row: row}
	}
	if *e.RepRangeLower > *e.RepRangeUpper {
		return ExerciseTemplate{}, &BuildError{Field: FieldRepRange, Row: row}
	}

	return ExerciseTemplate{
		Name:     e.Name,
		Order:    row,
		SetCount: *e.SetCount,
		Unit:     e.Unit.WithValue(e.UnitValue),
		RepRange: RepRange{Lower: *e.RepRangeLower, Upper: *e.RepRangeUpper},
	}, nil
}
