package widget

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Arbiter decides which widget owns the shared pointer stream. A widget
// acquires it when a gesture starts and releases it when the gesture ends;
// only the owner reacts to move and end events. Widgets that share an input
// stream must share an Arbiter.
type Arbiter struct {
	mu    sync.Mutex
	owner uuid.UUID
}

func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Acquire hands ownership to id, taking it from whoever held it.
func (a *Arbiter) Acquire(id uuid.UUID) {
	a.mu.Lock()
	a.owner = id
	a.mu.Unlock()
}

// Release clears ownership if id still holds it.
func (a *Arbiter) Release(id uuid.UUID) {
	a.mu.Lock()
	if a.owner == id {
		a.owner = uuid.Nil
	}
	a.mu.Unlock()
}

func (a *Arbiter) Owns(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return id != uuid.Nil && a.owner == id
}

// Timer is a cancellable deferred call.
type Timer interface {
	// Stop cancels the call. It reports false if the call already ran.
	Stop() bool
}

// Clock schedules deferred calls; tests swap it for a manual one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules calls with time.AfterFunc.
var SystemClock Clock = systemClock{}
