package ticker

import "testing"

// TestCountdownSequence verifies the remaining counts delivered to a
// countdown and its removal after the final tick.
func TestCountdownSequence(t *testing.T) {
	tk := NewManual()

	var got []int
	tk.Register(3, func(remaining int) bool {
		got = append(got, remaining)
		return true
	})

	for range 5 {
		tk.Tick()
	}

	want := []int{2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("tick count = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tick %d remaining = %d, want %d", i, got[i], want[i])
		}
	}
	if tk.Pending() != 0 {
		t.Errorf("Pending() = %d after countdown finished, want 0", tk.Pending())
	}
}

// TestEarlyDeregister verifies a countdown that returns false receives no
// further ticks even with remaining time on the clock.
func TestEarlyDeregister(t *testing.T) {
	tk := NewManual()

	calls := 0
	tk.Register(10, func(remaining int) bool {
		calls++
		return false
	})

	tk.Tick()
	tk.Tick()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if tk.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tk.Pending())
	}
}

// TestIndependentCountdowns verifies countdowns with different lengths
// expire independently of each other.
func TestIndependentCountdowns(t *testing.T) {
	tk := NewManual()

	var short, long int
	tk.Register(1, func(remaining int) bool { short++; return true })
	tk.Register(3, func(remaining int) bool { long++; return true })

	tk.Tick()
	if short != 1 || long != 1 {
		t.Fatalf("after tick 1: short=%d long=%d", short, long)
	}
	if tk.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", tk.Pending())
	}

	tk.Tick()
	tk.Tick()
	if short != 1 {
		t.Errorf("expired countdown ticked again: short=%d", short)
	}
	if long != 3 {
		t.Errorf("long=%d, want 3", long)
	}
}

// TestStopDeregisters verifies the stop function removes a countdown
// without delivering another tick to it.
func TestStopDeregisters(t *testing.T) {
	tk := NewManual()

	calls := 0
	stop := tk.Register(5, func(remaining int) bool {
		calls++
		return true
	})

	tk.Tick()
	stop()

	if tk.Pending() != 0 {
		t.Errorf("Pending() = %d after stop, want 0", tk.Pending())
	}
	tk.Tick()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestRegisterDuringTick verifies a countdown registered from inside a
// tick callback is not advanced until the next tick.
func TestRegisterDuringTick(t *testing.T) {
	tk := NewManual()

	nested := 0
	tk.Register(1, func(remaining int) bool {
		tk.Register(2, func(remaining int) bool {
			nested++
			return true
		})
		return true
	})

	tk.Tick()
	if nested != 0 {
		t.Fatalf("nested countdown ticked during registration tick")
	}
	tk.Tick()
	if nested != 1 {
		t.Errorf("nested ticks = %d, want 1", nested)
	}
}
