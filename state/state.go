package state

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the lifecycle state of a room.
type Status int

const (
	Waiting Status = iota
	InProgress
	Paused
	Finished
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case InProgress:
		return "in_progress"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine is a table-driven state machine. Only transitions registered with
// AddTransition are possible, and a registered guard must return true for
// the transition to happen.
type Machine struct {
	current     Status
	transitions map[Status]map[Status]func() bool // from -> to -> guard
	onChange    func(from, to Status)
	mutex       sync.RWMutex
}

func NewMachine(initial Status) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[Status]map[Status]func() bool),
	}
}

// NewRoomMachine returns a machine in Waiting with the room lifecycle:
//
//	Waiting -> InProgress -> Paused -> InProgress
//	InProgress -> Waiting (guarded by canReset)
//	InProgress, Paused -> Finished
//
// Finished is terminal.
func NewRoomMachine(canReset func() bool) *Machine {
	m := NewMachine(Waiting)
	m.AddTransition(Waiting, InProgress, nil)
	m.AddTransition(InProgress, Paused, nil)
	m.AddTransition(Paused, InProgress, nil)
	m.AddTransition(InProgress, Waiting, canReset)
	m.AddTransition(InProgress, Finished, nil)
	m.AddTransition(Paused, Finished, nil)
	return m
}

func (sm *Machine) AddTransition(from, to Status, guard func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Status]func() bool)
	}
	sm.transitions[from][to] = guard
}

// OnChange registers a hook called after every successful transition.
func (sm *Machine) OnChange(fn func(from, to Status)) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.onChange = fn
}

func (sm *Machine) ChangeState(to Status) error {
	sm.mutex.Lock()
	from := sm.current
	if !sm.allowedLocked(to) {
		sm.mutex.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	sm.current = to
	hook := sm.onChange
	sm.mutex.Unlock()

	if hook != nil {
		hook(from, to)
	}
	return nil
}

// Can reports whether a transition to the given status would be allowed now.
func (sm *Machine) Can(to Status) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.allowedLocked(to)
}

func (sm *Machine) allowedLocked(to Status) bool {
	conditions, exists := sm.transitions[sm.current]
	if !exists {
		return false
	}
	guard, exists := conditions[to]
	if !exists {
		return false
	}
	return guard == nil || guard()
}

func (sm *Machine) Current() Status {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.current
}
