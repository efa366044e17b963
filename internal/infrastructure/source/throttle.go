package source

import (
	"context"
	"errors"
	"time"

	"github.com/RussellLuo/slidingwindow"
	"golang.org/x/time/rate"
)

// ErrBudgetExhausted signals that the daily outbound request budget is
// spent; scans resume when the window slides.
var ErrBudgetExhausted = errors.New("daily request budget exhausted")

// Throttle is the cooperative per-process limiter toward the source
// platform: a minimum inter-request delay plus a sliding daily budget.
// One process owns the outbound calls, so nothing distributed is needed.
type Throttle struct {
	min   *rate.Limiter
	daily *slidingwindow.Limiter
}

// NewThrottle builds the limiter pair; zero values get safe defaults.
func NewThrottle(minInterval time.Duration, dailyBudget int64) *Throttle {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if dailyBudget <= 0 {
		dailyBudget = 1000
	}
	daily, _ := slidingwindow.NewLimiter(24*time.Hour, dailyBudget, func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return &Throttle{
		min:   rate.NewLimiter(rate.Every(minInterval), 1),
		daily: daily,
	}
}

// Acquire blocks for the inter-request delay and consumes one unit of the
// daily budget, or fails fast when the budget is gone.
func (t *Throttle) Acquire(ctx context.Context) error {
	if !t.daily.Allow() {
		return ErrBudgetExhausted
	}
	return t.min.Wait(ctx)
}
