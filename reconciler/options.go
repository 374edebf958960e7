package reconciler

import (
	"time"

	"go.uber.org/ratelimit"
)

type Option func(*Reconciler)

func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithMaxRate limits receipt queries to perSecond.
func WithMaxRate(perSecond int) Option {
	return func(r *Reconciler) {
		if perSecond > 0 {
			r.limiter = ratelimit.New(perSecond, ratelimit.WithoutSlack)
		}
	}
}

func WithSystemService(svc SystemService) Option {
	return func(r *Reconciler) {
		r.system = svc
	}
}
