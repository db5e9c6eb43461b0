package common

import "sync/atomic"

// LifecycleState captures the run state of a long-running component. Each
// component owns exactly one background task; Start and Stop are the only
// transitions.
type LifecycleState uint32

const (
	// Stopped is the initial state; no background task is running.
	Stopped LifecycleState = iota
	// Running means the component's background task is active.
	Running
)

// String ...
func (s LifecycleState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	default:
		return "Unknown"
	}
}

// Lifecycle is an atomically updated Stopped/Running flag embedded by
// components that own a background task.
type Lifecycle struct {
	state uint32
}

// GetState ...
func (l *Lifecycle) GetState() LifecycleState {
	return LifecycleState(atomic.LoadUint32(&l.state))
}

// SetState ...
func (l *Lifecycle) SetState(s LifecycleState) {
	atomic.StoreUint32(&l.state, uint32(s))
}

// TransitionTo sets the state to next only if the current state is from, and
// reports whether the transition happened. It makes Start/Stop idempotent
// under concurrent callers.
func (l *Lifecycle) TransitionTo(from, next LifecycleState) bool {
	return atomic.CompareAndSwapUint32(&l.state, uint32(from), uint32(next))
}
