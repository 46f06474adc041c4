package alert_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantkit/pkg/alert"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	kvs   [][]any
}

func (r *recordingNotifier) Critical(_ context.Context, subject string, kv ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, subject)
	r.kvs = append(r.kvs, kv)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	t.Run("caps a storm to the burst", func(t *testing.T) {
		t.Parallel()

		rec := &recordingNotifier{}
		th := alert.Throttle(rec, 2, time.Hour)

		for i := 0; i < 50; i++ {
			th.Critical(context.Background(), "enforcement fault")
		}
		assert.Equal(t, 2, rec.count())
	})

	t.Run("subjects are throttled independently", func(t *testing.T) {
		t.Parallel()

		rec := &recordingNotifier{}
		th := alert.Throttle(rec, 1, time.Hour)

		th.Critical(context.Background(), "enforcement fault")
		th.Critical(context.Background(), "enforcement fault")
		th.Critical(context.Background(), "audit outage")

		assert.Equal(t, []string{"enforcement fault", "audit outage"}, rec.calls)
	})

	t.Run("reports suppressed count on the next delivery", func(t *testing.T) {
		t.Parallel()

		rec := &recordingNotifier{}
		th := alert.Throttle(rec, 1, 50*time.Millisecond)

		th.Critical(context.Background(), "enforcement fault")
		for i := 0; i < 7; i++ {
			th.Critical(context.Background(), "enforcement fault")
		}

		assert.Eventually(t, func() bool {
			th.Critical(context.Background(), "enforcement fault")
			return rec.count() >= 2
		}, time.Second, 10*time.Millisecond)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		last := rec.kvs[len(rec.kvs)-1]
		assert.NotEmpty(t, last, "delivered escalation carries the suppressed count")
	})

	t.Run("multi fans out", func(t *testing.T) {
		t.Parallel()

		a, b := &recordingNotifier{}, &recordingNotifier{}
		alert.Multi{a, b}.Critical(context.Background(), "audit outage")

		assert.Equal(t, 1, a.count())
		assert.Equal(t, 1, b.count())
	})
}
