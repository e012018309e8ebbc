package event

import (
	"errors"
	"testing"
)

func record(order *[]int, id int) Callback {
	return func(ev *Event) error {
		*order = append(*order, id)
		return nil
	}
}

func checkOrder(t *testing.T, got []int, want ...int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestPriorityOrder(t *testing.T) {
	b := New()
	var order []int
	b.Register("commands", "privmsg", 10, record(&order, 10))
	b.Register("commands", "privmsg", -5, record(&order, -5))
	b.Register("commands", "privmsg", 0, record(&order, 0))

	if _, err := b.Dispatch("commands", "PRIVMSG", nil); err != nil {
		t.Fatal(err)
	}
	checkOrder(t, order, -5, 0, 10)
}

func TestEqualPriorityRegistrationOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 1; i <= 4; i++ {
		b.Register("hooks", "connected", 0, record(&order, i))
	}
	b.Dispatch("hooks", "connected", nil)
	checkOrder(t, order, 1, 2, 3, 4)
}

func TestCancel(t *testing.T) {
	b := New()
	var order []int
	b.Register("hooks", "x", 0, record(&order, 1))
	b.Register("hooks", "x", 1, func(ev *Event) error {
		order = append(order, 2)
		ev.Status = StatusCancel
		return nil
	})
	b.Register("hooks", "x", 2, record(&order, 3))

	ev, _ := b.Dispatch("hooks", "x", nil)
	if ev.Status != StatusCancel {
		t.Errorf("Expected cancelled event, got %v", ev.Status)
	}
	checkOrder(t, order, 1, 2)

	order = nil
	b.Dispatch("hooks", "x", nil)
	checkOrder(t, order, 1, 2)
}

func TestCancelDoesNotLeakIntoNextDispatch(t *testing.T) {
	b := New()
	calls := 0
	cancel := true
	b.Register("hooks", "x", 0, func(ev *Event) error {
		if cancel {
			ev.Status = StatusCancel
		}
		return nil
	})
	b.Register("hooks", "x", 1, func(ev *Event) error {
		calls++
		return nil
	})

	b.Dispatch("hooks", "x", nil)
	cancel = false
	ev, _ := b.Dispatch("hooks", "x", nil)
	if calls != 1 {
		t.Errorf("Expected second dispatch to reach the later callback once, got %d", calls)
	}
	if ev.Status != StatusOk {
		t.Errorf("Second dispatch status = %v", ev.Status)
	}
}

func TestPauseResume(t *testing.T) {
	b := New()
	var order []int
	b.Register("commands", "cap", 0, record(&order, 1))
	b.Register("commands", "cap", 1, func(ev *Event) error {
		order = append(order, 2)
		ev.Status = StatusPause
		return nil
	})
	b.Register("commands", "cap", 2, record(&order, 3))

	ev, err := b.Dispatch("commands", "cap", "payload")
	if err != nil {
		t.Fatal(err)
	}
	if !ev.Paused() {
		t.Fatal("Expected paused event")
	}
	checkOrder(t, order, 1, 2)

	if _, err := b.Resume(ev); err != nil {
		t.Fatal(err)
	}
	checkOrder(t, order, 1, 2, 3)
	if ev.Paused() || ev.Status != StatusOk {
		t.Errorf("Event still paused after resume: %v", ev.Status)
	}

	// Resuming again is a no-op.
	b.Resume(ev)
	checkOrder(t, order, 1, 2, 3)
}

func TestPauseLastCallback(t *testing.T) {
	b := New()
	b.Register("hooks", "x", 0, func(ev *Event) error {
		ev.Status = StatusPause
		return nil
	})
	ev, _ := b.Dispatch("hooks", "x", nil)
	if !ev.Paused() {
		t.Errorf("Pausing the last callback should still leave the event paused")
	}
	b.Resume(ev)
	if ev.Paused() {
		t.Errorf("Expected resume to clear the pause")
	}
}

func TestTerminateSoonContinues(t *testing.T) {
	b := New()
	var order []int
	b.Register("hooks", "x", 0, func(ev *Event) error {
		ev.Status = StatusTerminateSoon
		return nil
	})
	b.Register("hooks", "x", 1, record(&order, 2))

	ev, _ := b.Dispatch("hooks", "x", nil)
	checkOrder(t, order, 2)
	if !ev.TerminateSoon() {
		t.Errorf("Expected termination request to be recorded")
	}
}

func TestTerminateNow(t *testing.T) {
	b := New()
	var terminated *Event
	b.Terminate = func(ev *Event) { terminated = ev }

	var order []int
	b.Register("hooks", "x", 0, func(ev *Event) error {
		ev.Status = StatusTerminateNow
		return nil
	})
	b.Register("hooks", "x", 1, record(&order, 2))

	b.Dispatch("hooks", "x", nil)
	if terminated == nil {
		t.Fatal("Terminate was not called")
	}
	if len(order) != 0 {
		t.Errorf("Callbacks ran after TerminateNow: %v", order)
	}
}

func TestCallbackError(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	ran := false
	b.Register("commands", "ping", 0, func(ev *Event) error { return boom })
	b.Register("commands", "ping", 1, func(ev *Event) error {
		ran = true
		return nil
	})

	_, err := b.Dispatch("commands", "ping", nil)
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped callback error, got %v", err)
	}
	if ran {
		t.Errorf("Dispatch continued after an error")
	}
}

func TestUnregister(t *testing.T) {
	b := New()
	var order []int
	r := b.Register("hooks", "x", 0, record(&order, 1))
	b.Register("hooks", "x", 0, record(&order, 2))

	if err := b.Unregister(r); err != nil {
		t.Fatal(err)
	}
	b.Dispatch("hooks", "x", nil)
	checkOrder(t, order, 2)

	if err := b.Unregister(r); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if b.Len("hooks", "x") != 1 {
		t.Errorf("Expected 1 registration, got %d", b.Len("hooks", "x"))
	}
}

func TestUnregisterDuringDispatch(t *testing.T) {
	b := New()
	var order []int
	var later *Registration
	b.Register("hooks", "x", 0, func(ev *Event) error {
		order = append(order, 1)
		return b.Unregister(later)
	})
	later = b.Register("hooks", "x", 1, record(&order, 2))
	b.Register("hooks", "x", 2, record(&order, 3))

	if _, err := b.Dispatch("hooks", "x", nil); err != nil {
		t.Fatal(err)
	}
	checkOrder(t, order, 1, 3)
}

func TestRegisterDuringDispatch(t *testing.T) {
	b := New()
	calls := 0
	b.Register("hooks", "x", 0, func(ev *Event) error {
		b.Register("hooks", "x", 1, func(ev *Event) error {
			calls++
			return nil
		})
		return nil
	})

	b.Dispatch("hooks", "x", nil)
	if calls != 0 {
		t.Errorf("Callback registered mid-dispatch ran in the same dispatch")
	}
	b.Dispatch("hooks", "x", nil)
	if calls != 1 {
		t.Errorf("Expected the new callback to run on the next dispatch, got %d calls", calls)
	}
}

func TestReentrantDispatch(t *testing.T) {
	b := New()
	var order []int
	b.Register("commands", "cap", 0, func(ev *Event) error {
		order = append(order, 1)
		_, err := b.Dispatch("cap_perform", "ls", ev.Payload)
		return err
	})
	b.Register("cap_perform", "ls", 0, record(&order, 2))
	b.Register("commands", "cap", 1, record(&order, 3))

	b.Dispatch("commands", "cap", nil)
	checkOrder(t, order, 1, 2, 3)
}

func TestEventValues(t *testing.T) {
	b := New()
	b.Register("hooks", "x", 0, func(ev *Event) error {
		ev.Set("seen", true)
		return nil
	})
	ev, _ := b.Dispatch("hooks", "x", nil)
	if v, ok := ev.Value("seen"); !ok || v != true {
		t.Errorf("Expected value to be carried on the event")
	}
	if _, ok := ev.Value("missing"); ok {
		t.Errorf("Unexpected value")
	}
}

func TestClear(t *testing.T) {
	b := New()
	calls := 0
	b.Register("hooks", "x", 0, func(ev *Event) error {
		calls++
		return nil
	})
	b.Clear()
	b.Dispatch("hooks", "x", nil)
	if calls != 0 || b.Len("hooks", "x") != 0 {
		t.Errorf("Clear left registrations behind")
	}
}

func TestClassIsExact(t *testing.T) {
	b := New()
	calls := 0
	b.Register("hooks", "Connected", 0, func(ev *Event) error {
		calls++
		return nil
	})
	b.Dispatch("HOOKS", "connected", nil)
	b.Dispatch("hooks", "CONNECTED", nil)
	if calls != 1 {
		t.Errorf("Expected one call, got %d", calls)
	}
}
