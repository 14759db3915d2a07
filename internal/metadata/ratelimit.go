package metadata

import (
	"time"

	"golang.org/x/time/rate"
)

// Budget is a non-blocking request budget for one provider. Scrapers ask
// before every outbound request; a denied ask surfaces as ErrRateLimited
// instead of blocking the scan worker.
type Budget struct {
	lim *rate.Limiter
}

// NewBudget allows one request per interval with the given burst.
func NewBudget(interval time.Duration, burst int) *Budget {
	if burst < 1 {
		burst = 1
	}
	return &Budget{lim: rate.NewLimiter(rate.Every(interval), burst)}
}

// Unlimited returns a budget that never denies. Used for providers without
// a published request ceiling.
func Unlimited() *Budget {
	return &Budget{lim: rate.NewLimiter(rate.Inf, 1)}
}

func (b *Budget) Allow() bool {
	return b.lim.Allow()
}
