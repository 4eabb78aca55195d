package state

import (
	"errors"
	"testing"
)

func TestMachine_InitialState(t *testing.T) {
	sm := NewRoomMachine(nil)

	if sm.Current() != Waiting {
		t.Errorf("Expected waiting, got %s", sm.Current())
	}
}

func TestMachine_ChangeState(t *testing.T) {
	sm := NewRoomMachine(nil)

	var from, to Status
	calls := 0
	sm.OnChange(func(a, b Status) { from, to = a, b; calls++ })

	if err := sm.ChangeState(InProgress); err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}
	if sm.Current() != InProgress {
		t.Errorf("Expected in_progress, got %s", sm.Current())
	}
	if calls != 1 || from != Waiting || to != InProgress {
		t.Errorf("OnChange got %d calls, %s -> %s", calls, from, to)
	}
}

func TestMachine_RoomLifecycle(t *testing.T) {
	sm := NewRoomMachine(func() bool { return true })

	steps := []Status{InProgress, Paused, InProgress, Paused, Finished}
	for _, s := range steps {
		if err := sm.ChangeState(s); err != nil {
			t.Fatalf("Transition to %s failed: %v", s, err)
		}
	}

	// Finished is terminal.
	for _, s := range []Status{Waiting, InProgress, Paused} {
		if err := sm.ChangeState(s); !errors.Is(err, ErrTransitionNotAllowed) {
			t.Errorf("Finished -> %s should be rejected, got %v", s, err)
		}
	}
}

func TestMachine_BlockedTransitions(t *testing.T) {
	sm := NewRoomMachine(nil)

	for _, s := range []Status{Paused, Finished, Waiting} {
		if err := sm.ChangeState(s); !errors.Is(err, ErrTransitionNotAllowed) {
			t.Errorf("Waiting -> %s should be rejected, got %v", s, err)
		}
	}
	if sm.Current() != Waiting {
		t.Errorf("Expected current state to remain waiting, got %s", sm.Current())
	}
}

func TestMachine_ResetGuard(t *testing.T) {
	allowed := false
	sm := NewRoomMachine(func() bool { return allowed })
	sm.ChangeState(InProgress)

	hookCalled := false
	sm.OnChange(func(from, to Status) { hookCalled = true })

	if sm.Can(Waiting) {
		t.Error("Can should report the guard's answer")
	}
	if err := sm.ChangeState(Waiting); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Guarded reset should be rejected, got %v", err)
	}
	if hookCalled {
		t.Error("OnChange should not be called if the transition is blocked")
	}

	allowed = true
	if err := sm.ChangeState(Waiting); err != nil {
		t.Errorf("Reset should be allowed once the guard passes, got %v", err)
	}
	if !hookCalled {
		t.Error("OnChange should be called after the reset")
	}
}

func TestMachine_CustomTable(t *testing.T) {
	sm := NewMachine(Waiting)
	sm.AddTransition(Waiting, Finished, func() bool { return false })

	if err := sm.ChangeState(Finished); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
}
