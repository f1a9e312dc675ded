package workout

import (
	"encoding/json"
	"fmt"
)

// UnitKind identifies how a set's result is measured.
type UnitKind string

const (
	UnitWeightedReps   UnitKind = "weighted_reps"
	UnitBodyweightReps UnitKind = "bodyweight_reps"
	UnitTimedSeconds   UnitKind = "timed_seconds"
	UnitTimedMinutes   UnitKind = "timed_minutes"
)

// Unit is a closed variant describing a set's measurement: weighted reps
// carry a load value, the other variants are parameterless. Equality is
// structural on kind + value.
type Unit struct {
	Kind UnitKind `json:"kind"`
	// Load value for weighted reps. Ignored for other kinds.
	Load int `json:"value,omitempty"`
}

// WeightedReps returns a weighted-reps unit with the given load.
func WeightedReps(load int) Unit { return Unit{Kind: UnitWeightedReps, Load: load} }

// BodyweightReps is the parameterless bodyweight unit.
var BodyweightReps = Unit{Kind: UnitBodyweightReps}

// TimedSeconds is the parameterless seconds unit.
var TimedSeconds = Unit{Kind: UnitTimedSeconds}

// TimedMinutes is the parameterless minutes unit.
var TimedMinutes = Unit{Kind: UnitTimedMinutes}

// AllUnitKinds lists every selectable kind, in display order.
var AllUnitKinds = []UnitKind{UnitWeightedReps, UnitBodyweightReps, UnitTimedSeconds, UnitTimedMinutes}

// HasReps reports whether results are captured as a rep count rather than
// elapsed time.
func (u Unit) HasReps() bool {
	return u.Kind == UnitWeightedReps || u.Kind == UnitBodyweightReps
}

// HasValue reports whether the unit carries an editable numeric parameter.
func (u Unit) HasValue() bool {
	return u.Kind == UnitWeightedReps
}

// Value returns the numeric parameter and whether the unit has one.
func (u Unit) Value() (int, bool) {
	if u.Kind == UnitWeightedReps {
		return u.Load, true
	}
	return 0, false
}

// WithValue returns a copy of the unit with its parameter replaced. A nil
// value leaves the unit unchanged.
func (u Unit) WithValue(value *int) Unit {
	if value == nil || u.Kind != UnitWeightedReps {
		return u
	}
	return Unit{Kind: u.Kind, Load: *value}
}

// Description is the short suffix shown next to a captured value.
func (u Unit) Description() string {
	switch u.Kind {
	case UnitWeightedReps:
		return "lbs"
	case UnitBodyweightReps:
		return "body"
	case UnitTimedSeconds:
		return "sec"
	case UnitTimedMinutes:
		return "min"
	}
	return string(u.Kind)
}

// Title is the column heading for the unit's value.
func (u Unit) Title() string {
	switch u.Kind {
	case UnitTimedSeconds, UnitTimedMinutes:
		return "Time"
	default:
		return "Weight"
	}
}

// Valid reports whether the kind is one of the closed set.
func (u Unit) Valid() bool {
	switch u.Kind {
	case UnitWeightedReps, UnitBodyweightReps, UnitTimedSeconds, UnitTimedMinutes:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown kinds so malformed wire data surfaces as a
// decode error instead of a zero-valued unit.
func (u *Unit) UnmarshalJSON(data []byte) error {
	type plain Unit
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !(Unit(p)).Valid() {
		return fmt.Errorf("unknown unit kind %q", p.Kind)
	}
	*u = Unit(p)
	return nil
}

// RepRange is a closed interval of target repetitions (or seconds/minutes
// for timed units). Lower <= Upper after validation.
type RepRange struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Contains reports whether v falls within the range.
func (r RepRange) Contains(v int) bool {
	return v >= r.Lower && v <= r.Upper
}

// String renders "8-12", collapsing to a single number when the bounds match.
func (r RepRange) String() string {
	if r.Lower == r.Upper {
		return fmt.Sprintf("%d", r.Lower)
	}
	return fmt.Sprintf("%d-%d", r.Lower, r.Upper)
}
