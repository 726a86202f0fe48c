package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Timers and tickers fire only
// when Advance moves time past their deadlines, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

// NewFake returns a Fake positioned at an arbitrary fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	return f.newTimer(d, true)
}

func (f *Fake) NewTimer(d time.Duration) Timer {
	return f.newTimer(d, false)
}

func (f *Fake) newTimer(d time.Duration, periodic bool) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		ch:       make(chan time.Time, 1),
		deadline: f.now.Add(d),
		fake:     f,
	}
	if periodic {
		t.interval = d
	}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward, firing every due timer in deadline order.
// Ticks are delivered without blocking; a tick that finds its channel full
// is dropped, matching time.Ticker semantics.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		var next *fakeTimer
		for _, t := range f.timers {
			if t.stopped || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			break
		}

		f.now = next.deadline
		select {
		case next.ch <- f.now:
		default:
		}
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			next.stopped = true
		}
	}

	f.now = target
	f.mu.Unlock()
}

type fakeTimer struct {
	ch       chan time.Time
	deadline time.Time
	interval time.Duration
	stopped  bool
	fake     *Fake
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	t.stopped = true
}
