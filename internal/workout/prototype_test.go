package workout

import (
	"testing"

	"github.com/google/uuid"
)

// validDraft returns a two-row draft that passes every Build check.
func validDraft() *Prototype {
	p := NewPrototype()
	p.Name = "Push Day"

	bench := p.AddExercise()
	bench.Name = "Bench"
	bench.UnitValue = intPtr(95)
	bench.SetCount = intPtr(3)
	bench.RepRangeLower = intPtr(8)
	bench.RepRangeUpper = intPtr(12)

	dips := p.AddExercise()
	dips.Name = "Dips"
	dips.Unit = BodyweightReps
	dips.SetCount = intPtr(2)
	dips.RepRangeLower = intPtr(10)
	dips.RepRangeUpper = intPtr(15)

	return p
}

// TestBuildSuccess verifies a complete draft commits with a fresh ID, row
// order, and the unit parameter folded into the unit.
func TestBuildSuccess(t *testing.T) {
	tmpl, err := validDraft().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tmpl.ID == uuid.Nil {
		t.Error("Build did not assign an ID")
	}
	if tmpl.Name != "Push Day" {
		t.Errorf("name = %q, want %q", tmpl.Name, "Push Day")
	}
	if len(tmpl.Exercises) != 2 {
		t.Fatalf("exercise count = %d, want 2", len(tmpl.Exercises))
	}
	bench := tmpl.Exercises[0]
	if bench.Order != 0 || bench.Unit.Load != 95 || bench.SetCount != 3 {
		t.Errorf("bench = %+v", bench)
	}
	if tmpl.Exercises[1].Order != 1 {
		t.Errorf("dips order = %d, want 1", tmpl.Exercises[1].Order)
	}
}

// TestBuildValidation walks the fail-fast checks one field at a time,
// verifying the field tag, the offending row, and the message.
func TestBuildValidation(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(p *Prototype)
		wantField BuildField
		wantRow   int
		wantMsg   string
	}{
		{
			name:      "missing workout name",
			mutate:    func(p *Prototype) { p.Name = "" },
			wantField: FieldWorkoutName,
			wantRow:   -1,
			wantMsg:   "missing name of workout",
		},
		{
			name:      "missing exercise name",
			mutate:    func(p *Prototype) { p.Exercises[0].Name = "" },
			wantField: FieldExerciseName,
			wantRow:   0,
			wantMsg:   "missing name of exercise 1",
		},
		{
			name:      "missing set count",
			mutate:    func(p *Prototype) { p.Exercises[1].SetCount = nil },
			wantField: FieldSetCount,
			wantRow:   1,
			wantMsg:   "missing set count for exercise 2",
		},
		{
			name:      "missing unit value",
			mutate:    func(p *Prototype) { p.Exercises[0].UnitValue = nil },
			wantField: FieldUnitValue,
			wantRow:   0,
			wantMsg:   "missing unit value for exercise 1",
		},
		{
			name:      "missing lower bound",
			mutate:    func(p *Prototype) { p.Exercises[0].RepRangeLower = nil },
			wantField: FieldRepRangeLower,
			wantRow:   0,
			wantMsg:   "missing rep range lower bound for exercise 1",
		},
		{
			name:      "missing upper bound",
			mutate:    func(p *Prototype) { p.Exercises[1].RepRangeUpper = nil },
			wantField: FieldRepRangeUpper,
			wantRow:   1,
			wantMsg:   "missing rep range upper bound for exercise 2",
		},
		{
			name: "inverted range",
			mutate: func(p *Prototype) {
				p.Exercises[0].RepRangeLower = intPtr(12)
				p.Exercises[0].RepRangeUpper = intPtr(8)
			},
			wantField: FieldRepRange,
			wantRow:   0,
			wantMsg:   "rep range lower bound must be smaller than upper bound for exercise 1",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := validDraft()
			c.mutate(p)
			tmpl, err := p.Build()
			if tmpl != nil {
				t.Error("Build returned a template on failure")
			}
			be, ok := AsBuildError(err)
			if !ok {
				t.Fatalf("error = %v, want BuildError", err)
			}
			if be.Field != c.wantField || be.Row != c.wantRow {
				t.Errorf("error = {Field:%d Row:%d}, want {Field:%d Row:%d}",
					be.Field, be.Row, c.wantField, c.wantRow)
			}
			if be.Error() != c.wantMsg {
				t.Errorf("message = %q, want %q", be.Error(), c.wantMsg)
			}
		})
	}
}

// TestBuildFailFast verifies the first violation in reading order wins
// when several rows are broken.
func TestBuildFailFast(t *testing.T) {
	p := validDraft()
	p.Exercises[0].SetCount = nil
	p.Exercises[1].Name = ""

	_, err := p.Build()
	be, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("error = %v, want BuildError", err)
	}
	if be.Field != FieldSetCount || be.Row != 0 {
		t.Errorf("error = {Field:%d Row:%d}, want first violation {Field:%d Row:0}",
			be.Field, be.Row, FieldSetCount)
	}
}

// TestBuildBodyweightNeedsNoValue verifies parameterless units skip the
// unit-value check.
func TestBuildBodyweightNeedsNoValue(t *testing.T) {
	p := validDraft()
	p.Exercises[1].UnitValue = nil // bodyweight row
	if _, err := p.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

// TestRemoveExercise verifies row deletion and that out-of-range indices
// are ignored.
func TestRemoveExercise(t *testing.T) {
	p := validDraft()
	p.RemoveExercise(0)
	if len(p.Exercises) != 1 || p.Exercises[0].Name != "Dips" {
		t.Errorf("after remove: %d rows, first %q", len(p.Exercises), p.Exercises[0].Name)
	}
	p.RemoveExercise(5)
	p.RemoveExercise(-1)
	if len(p.Exercises) != 1 {
		t.Errorf("out-of-range remove changed row count to %d", len(p.Exercises))
	}
}

// TestBuildOrderReassignedAfterRemove verifies committed order always
// reflects current row positions, not the order rows were added.
func TestBuildOrderReassignedAfterRemove(t *testing.T) {
	p := validDraft()
	p.RemoveExercise(0)
	tmpl, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tmpl.Exercises[0].Order != 0 {
		t.Errorf("order = %d, want 0", tmpl.Exercises[0].Order)
	}
}
