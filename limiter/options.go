package limiter

import "time"

// Option configures a HybridLimiter.
type Option func(*HybridLimiter)

// WithProbeInterval sets the period of the remote-store health probe.
// Values <= 0 keep the default.
func WithProbeInterval(d time.Duration) Option {
	return func(l *HybridLimiter) {
		if d > 0 {
			l.probeInterval = d
		}
	}
}

// WithSweepInterval sets the period of the local record sweep.
// Values <= 0 keep the default.
func WithSweepInterval(d time.Duration) Option {
	return func(l *HybridLimiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// WithPingTimeout bounds each health-probe ping.
// Values <= 0 keep the default.
func WithPingTimeout(d time.Duration) Option {
	return func(l *HybridLimiter) {
		if d > 0 {
			l.pingTimeout = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *HybridLimiter) {
		if now != nil {
			l.now = now
		}
	}
}
