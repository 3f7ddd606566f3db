package statemachine

import (
	"reflect"
	"sync"
)

// StateFn represents a state function following Rob Pike's pattern
type StateFn[T any] func(*T) StateFn[T]

// StateMachine is a small wrapper around a chain of state functions.
// State functions are the states themselves, and each returns the next state function.
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	names   map[uintptr]string
	mutex   sync.RWMutex
}

// NewStateMachine creates a new state machine for the given entity
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initialStateFn,
		names:   make(map[uintptr]string),
	}
}

// Name registers a human readable name for a state function. Names are used
// by CurrentName for logging and snapshots.
func (sm *StateMachine[T]) Name(stateFn StateFn[T], name string) *StateMachine[T] {
	sm.mutex.Lock()
	sm.names[fnKey(stateFn)] = name
	sm.mutex.Unlock()
	return sm
}

// Dispatch calls the given state function once and transitions to the returned state.
// If stateFn is nil the current state is executed instead.
func (sm *StateMachine[T]) Dispatch(stateFn StateFn[T]) {
	sm.mutex.Lock()
	if stateFn != nil {
		sm.stateFn = stateFn
	}
	current := sm.stateFn
	sm.mutex.Unlock()

	if current == nil {
		return
	}

	next := current(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = next
	sm.mutex.Unlock()
}

// GetCurrentState returns the current state function
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// SetState sets the state function without executing it
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()
}

// Is reports whether the machine currently sits in stateFn.
func (sm *StateMachine[T]) Is(stateFn StateFn[T]) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	if sm.stateFn == nil || stateFn == nil {
		return sm.stateFn == nil && stateFn == nil
	}
	return fnKey(sm.stateFn) == fnKey(stateFn)
}

// CurrentName returns the registered name of the current state, "TERMINATED"
// for a nil state and "UNKNOWN" for unregistered states.
func (sm *StateMachine[T]) CurrentName() string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	if sm.stateFn == nil {
		return "TERMINATED"
	}
	if name, ok := sm.names[fnKey(sm.stateFn)]; ok {
		return name
	}
	return "UNKNOWN"
}

// fnKey identifies a state function by its code pointer. Function values are
// not comparable in Go, so the pointer is the only stable identity.
func fnKey[T any](fn StateFn[T]) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
