// Package powerlock models the wake-lock the control loop holds while a
// charge cycle is active, so the host platform doesn't suspend with the
// state machine mid-transition. It mirrors the original charger's
// pm_lock/pm_unlock pairing. Noop is idempotent; Counting nests, so each
// Acquire needs its own Release before the underlying lock is dropped.
package powerlock

// Lock is acquired for the duration of an active charge cycle and
// released once the path is quiescent (FULL, FAULT, or idle).
type Lock interface {
	Acquire()
	Release()
	Held() bool
}

// Noop is used on platforms with no suspend to manage, or in tests.
type Noop struct{ held bool }

func (l *Noop) Acquire()   { l.held = true }
func (l *Noop) Release()   { l.held = false }
func (l *Noop) Held() bool { return l.held }

// Counting supports nested Acquire/Release pairs from independent
// callers (e.g. the charge state machine and a telemetry poller both
// wanting the system awake), releasing the underlying lock only when
// every acquirer has released.
type Counting struct {
	acquire func()
	release func()
	count   int
}

func NewCounting(acquire, release func()) *Counting {
	return &Counting{acquire: acquire, release: release}
}

func (l *Counting) Acquire() {
	if l.count == 0 && l.acquire != nil {
		l.acquire()
	}
	l.count++
}

func (l *Counting) Release() {
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 && l.release != nil {
		l.release()
	}
}

func (l *Counting) Held() bool { return l.count > 0 }

var (
	_ Lock = (*Noop)(nil)
	_ Lock = (*Counting)(nil)
)
