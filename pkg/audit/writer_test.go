package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
)

// flakyStorage fails every write until recovered.
type flakyStorage struct {
	mu      sync.Mutex
	failing bool
	batches [][]audit.Event
}

func (s *flakyStorage) Store(ctx context.Context, e audit.Event) error {
	return s.StoreBatch(ctx, []audit.Event{e})
}

func (s *flakyStorage) StoreBatch(_ context.Context, events []audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return audit.ErrStorageUnavailable
	}
	s.batches = append(s.batches, append([]audit.Event(nil), events...))
	return nil
}

func (s *flakyStorage) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakyStorage) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

// blockingStorage parks every StoreBatch call until released.
type blockingStorage struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStorage) Store(ctx context.Context, e audit.Event) error {
	return s.StoreBatch(ctx, []audit.Event{e})
}

func (s *blockingStorage) StoreBatch(context.Context, []audit.Event) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return nil
}

func event(action string) audit.Event {
	return audit.Event{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Action:    action,
		Result:    audit.ResultAllowed,
		Severity:  audit.SeverityInfo,
		CreatedAt: time.Now(),
	}
}

func spoolLines(t *testing.T, spool *audit.Spool, segment string) []audit.Event {
	t.Helper()
	f, err := spool.Open(segment)
	require.NoError(t, err)
	defer f.Close()

	var events []audit.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e audit.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestAsyncWriter(t *testing.T) {
	t.Parallel()

	t.Run("batches reach storage", func(t *testing.T) {
		t.Parallel()

		storage := &flakyStorage{}
		w := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:     4,
			FlushInterval: 10 * time.Millisecond,
		})

		for i := 0; i < 10; i++ {
			require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
		}

		require.NoError(t, w.Close(context.Background()))
		assert.Equal(t, 10, storage.stored())
	})

	t.Run("storage failure diverts to the spool", func(t *testing.T) {
		t.Parallel()

		spool, err := audit.NewSpool(t.TempDir())
		require.NoError(t, err)
		defer spool.Close()

		storage := &flakyStorage{failing: true}
		w := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			FlushInterval: 5 * time.Millisecond,
			Spool:         spool,
		})

		require.NoError(t, w.Store(context.Background(), event(audit.ActionQuota)))
		require.NoError(t, w.Close(context.Background()))

		require.NoError(t, spool.Rotate())
		segments, err := spool.Segments()
		require.NoError(t, err)
		require.Len(t, segments, 1)

		events := spoolLines(t, spool, segments[0])
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionQuota, events[0].Action)
		assert.Equal(t, 0, storage.stored())
	})

	t.Run("failure streak escalates once", func(t *testing.T) {
		t.Parallel()

		spool, err := audit.NewSpool(t.TempDir())
		require.NoError(t, err)
		defer spool.Close()

		var (
			mu       sync.Mutex
			outages  int
			atStreak int
		)
		storage := &flakyStorage{failing: true}
		w := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:        1,
			FlushInterval:    time.Millisecond,
			FailureThreshold: 3,
			Spool:            spool,
			OnOutage: func(_ error, streak int) {
				mu.Lock()
				outages++
				atStreak = streak
				mu.Unlock()
			},
		})

		for i := 0; i < 5; i++ {
			require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
			time.Sleep(5 * time.Millisecond)
		}
		require.NoError(t, w.Close(context.Background()))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, outages, "escalate at the threshold, not on every failure")
		assert.Equal(t, 3, atStreak)
	})

	t.Run("recovery resets the streak", func(t *testing.T) {
		t.Parallel()

		spool, err := audit.NewSpool(t.TempDir())
		require.NoError(t, err)
		defer spool.Close()

		var outages int
		var mu sync.Mutex
		storage := &flakyStorage{failing: true}
		w := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:        1,
			FlushInterval:    time.Millisecond,
			FailureThreshold: 3,
			Spool:            spool,
			OnOutage: func(error, int) {
				mu.Lock()
				outages++
				mu.Unlock()
			},
		})

		// Two failures, then recovery before the threshold.
		for i := 0; i < 2; i++ {
			require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
			time.Sleep(5 * time.Millisecond)
		}
		storage.setFailing(false)
		require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
		require.NoError(t, w.Close(context.Background()))

		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, outages)
		assert.Equal(t, 1, storage.stored())
	})

	t.Run("full buffer spills to the spool, not the request", func(t *testing.T) {
		t.Parallel()

		spool, err := audit.NewSpool(t.TempDir())
		require.NoError(t, err)
		defer spool.Close()

		// Storage blocks inside the first flush, so the worker cannot
		// drain the buffer while we keep writing.
		storage := &blockingStorage{entered: make(chan struct{}, 1), release: make(chan struct{})}
		w := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BufferSize:    1,
			BatchSize:     1,
			FlushInterval: time.Millisecond,
			Spool:         spool,
		})

		require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
		<-storage.entered

		// Worker is stuck in StoreBatch: one more event fits the buffer,
		// everything past it must divert without blocking us.
		require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
		for i := 0; i < 3; i++ {
			require.NoError(t, w.Store(context.Background(), event(audit.ActionResolve)))
		}

		require.NoError(t, spool.Rotate())
		segments, err := spool.Segments()
		require.NoError(t, err)
		require.Len(t, segments, 1)
		assert.Len(t, spoolLines(t, spool, segments[0]), 3)

		close(storage.release)
		require.NoError(t, w.Close(context.Background()))
	})

	t.Run("store after close", func(t *testing.T) {
		t.Parallel()

		w := audit.NewAsyncWriter(&flakyStorage{}, audit.AsyncOptions{})
		require.NoError(t, w.Close(context.Background()))
		assert.ErrorIs(t, w.Store(context.Background(), event(audit.ActionResolve)), audit.ErrWriterClosed)
	})
}

func TestSpoolRotation(t *testing.T) {
	t.Parallel()

	spool, err := audit.NewSpool(t.TempDir(), audit.WithMaxSegmentSize(256))
	require.NoError(t, err)
	defer spool.Close()

	// Each event is well over 100 bytes encoded, so a few writes force
	// at least one size-based rotation.
	for i := 0; i < 6; i++ {
		require.NoError(t, spool.Write([]audit.Event{event(audit.ActionResolve)}))
	}

	segments, err := spool.Segments()
	require.NoError(t, err)
	assert.NotEmpty(t, segments)

	// Everything written is accounted for across segments plus current.
	require.NoError(t, spool.Rotate())
	segments, err = spool.Segments()
	require.NoError(t, err)

	total := 0
	for _, seg := range segments {
		total += len(spoolLines(t, spool, seg))
	}
	assert.Equal(t, 6, total)

	for _, seg := range segments {
		require.NoError(t, spool.Remove(seg))
	}
	segments, err = spool.Segments()
	require.NoError(t, err)
	assert.Empty(t, segments)
}
