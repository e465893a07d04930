package tools

import (
	"sync"
	"time"
)

const AllowedOverTime = 3
const TimePeriod = 5 * time.Minute

type MessageRange struct {
	Start time.Time
	Count int
}

// RateLimiter counts commands per user in fixed windows. It only rejects,
// nothing gets queued.
type RateLimiter struct {
	usersRate map[int64]MessageRange
	allowed   int
	period    time.Duration
	mu        sync.Mutex
}

func NewRateLimiter(allowed int, period time.Duration) *RateLimiter {
	if allowed <= 0 {
		allowed = AllowedOverTime
	}
	if period <= 0 {
		period = TimePeriod
	}
	return &RateLimiter{
		usersRate: make(map[int64]MessageRange),
		allowed:   allowed,
		period:    period,
	}
}

// GetRateOverPeriod registers a request and returns the request count in the
// current window together with the time left until the window resets.
func (r *RateLimiter) GetRateOverPeriod(userID int64, now time.Time) (int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messageRange, ok := r.usersRate[userID]
	if !ok || now.Sub(messageRange.Start) >= r.period {
		r.usersRate[userID] = MessageRange{
			Start: now, // set up a new range
			Count: 1,
		}
		r.forgetStale(now)
		return 1, r.period
	}
	// crude, but will do
	messageRange.Count++
	r.usersRate[userID] = messageRange
	return messageRange.Count, r.period - now.Sub(messageRange.Start)
}

// Allow returns a *RateLimitError once the user is over the limit.
func (r *RateLimiter) Allow(userID int64, now time.Time) error {
	if rate, wait := r.GetRateOverPeriod(userID, now); rate > r.allowed {
		return &RateLimitError{Wait: wait}
	}
	return nil
}

// forgetStale keeps the map from growing with users that went quiet.
func (r *RateLimiter) forgetStale(now time.Time) {
	for userID, messageRange := range r.usersRate {
		if now.Sub(messageRange.Start) >= r.period {
			delete(r.usersRate, userID)
		}
	}
}
