package timectrl

import (
	"context"
	"sync"
	"time"
)

// Source is the read side of a tick controller. Components that only
// observe the tick counter depend on this instead of the concrete
// controller type.
type Source interface {
	// Tick returns the number of completed ticks.
	Tick() int
	// AddListener registers a callback invoked after every tick with
	// the new tick count.
	AddListener(fn func(int))
}

// Mode describes how the TickController paces the simulation.
type Mode int

const (
	// RealTime waits Interval of wall-clock time between ticks.
	RealTime Mode = iota
	// Accelerated ticks as fast as the loop can run.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TickController drives the simulation loop and notifies registered
// listeners after every tick. Listeners run on the controller's
// goroutine, so stepping an engine from a listener is safe as long as
// nothing else touches the engine.
type TickController struct {
	mu       sync.RWMutex
	Interval time.Duration
	Mode     Mode

	tick int

	listeners []func(int)
}

// NewTickController constructs a controller. A non-positive interval
// in RealTime mode is treated as Accelerated.
func NewTickController(interval time.Duration, mode Mode) *TickController {
	if interval <= 0 {
		mode = Accelerated
	}
	return &TickController{Interval: interval, Mode: mode}
}

// Tick returns the number of completed ticks. Implements Source.
func (tc *TickController) Tick() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.tick
}

// SetTick resets the counter, for reusing a controller across runs.
// Call it only while the controller is not running.
func (tc *TickController) SetTick(n int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tick = n
}

// AddListener registers a callback invoked on every tick. Register all
// listeners before calling Run. Implements Source.
func (tc *TickController) AddListener(fn func(int)) {
	if fn != nil {
		tc.listeners = append(tc.listeners, fn)
	}
}

// Run drives the loop on a separate goroutine for the given number of
// ticks, or until ctx is cancelled when ticks is zero or negative. The
// returned channel is closed when the loop finishes.
func (tc *TickController) Run(ctx context.Context, ticks int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var pace *time.Ticker
		if tc.Mode == RealTime {
			pace = time.NewTicker(tc.Interval)
			defer pace.Stop()
		}

		for completed := 0; ticks <= 0 || completed < ticks; completed++ {
			if pace != nil {
				select {
				case <-ctx.Done():
					return
				case <-pace.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			tc.mu.Lock()
			tc.tick++
			current := tc.tick
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(current)
			}
		}
	}()
	return done
}
