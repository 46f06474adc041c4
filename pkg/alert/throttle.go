package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttled caps how often a notifier fires, per subject, so a fault storm
// pages once instead of a thousand times. Suppressed escalations are
// counted and the count is attached to the next one that gets through.
type Throttled struct {
	next  Notifier
	limit rate.Limit
	burst int

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	suppressed map[string]int
}

// Throttle wraps next, allowing n escalations per interval for each
// distinct subject.
func Throttle(next Notifier, n int, per time.Duration) *Throttled {
	if next == nil {
		panic("alert: throttled notifier requires a target")
	}
	if n < 1 {
		n = 1
	}
	if per <= 0 {
		per = time.Minute
	}

	return &Throttled{
		next:       next,
		limit:      rate.Every(per / time.Duration(n)),
		burst:      n,
		limiters:   make(map[string]*rate.Limiter),
		suppressed: make(map[string]int),
	}
}

func (t *Throttled) Critical(ctx context.Context, subject string, kv ...any) {
	t.mu.Lock()
	lim, ok := t.limiters[subject]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[subject] = lim
	}
	allowed := lim.Allow()
	var missed int
	if allowed {
		missed = t.suppressed[subject]
		t.suppressed[subject] = 0
	} else {
		t.suppressed[subject]++
	}
	t.mu.Unlock()

	if !allowed {
		return
	}
	if missed > 0 {
		kv = append(kv, slog.Int("suppressed_since_last", missed))
	}
	t.next.Critical(ctx, subject, kv...)
}
