package transport

import "time"

// Clock abstracts time so the setup and keepalive timers can be driven
// deterministically in tests instead of waiting on real sleeps. RealClock
// is what production callers get by default (see New).
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the subset of time.Timer the registry needs.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock is the production Clock, backed by the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                 { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
