package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Storage persists audit events. Implementations should optimize
// StoreBatch; the async writer always writes in batches.
type Storage interface {
	Store(ctx context.Context, event Event) error
	StoreBatch(ctx context.Context, events []Event) error
}

// OutageFunc is called once the storage failure streak crosses the
// configured threshold. An audit outage is an operational incident, not an
// isolation break: events keep landing in the spool and requests keep
// flowing while operators are paged.
type OutageFunc func(err error, streak int)

// AsyncOptions tunes buffering and batching.
type AsyncOptions struct {
	BufferSize       int           // events queued in memory before the spool takes over
	BatchSize        int           // target events per storage write
	FlushInterval    time.Duration // max age of a partial batch
	StorageTimeout   time.Duration // per-batch storage deadline
	FailureThreshold int           // consecutive failed batches before OnOutage fires

	Spool    *Spool       // local fallback; nil disables spooling
	OnOutage OutageFunc   // escalation hook; nil disables escalation
	Logger   *slog.Logger // defaults to slog.Default()
}

// AsyncWriter decouples audit recording from the request path: Store never
// blocks on storage I/O. Events are buffered and written in batches by a
// background worker; when the buffer is full or the backend fails, events
// divert to the local spool instead of being dropped or slowing requests.
type AsyncWriter struct {
	storage Storage
	opts    AsyncOptions
	log     *slog.Logger

	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsyncWriter starts the background worker.
func NewAsyncWriter(storage Storage, opts AsyncOptions) *AsyncWriter {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &AsyncWriter{
		storage: storage,
		opts:    opts,
		log:     opts.Logger,
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.worker()
	return w
}

// Store queues an event without waiting for storage. With a full buffer
// the event goes straight to the spool so the request path stays flat.
func (w *AsyncWriter) Store(_ context.Context, event Event) error {
	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}

	select {
	case w.events <- event:
		return nil
	default:
		return w.divert([]Event{event})
	}
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	batch := make([]Event, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.FlushInterval)
	defer ticker.Stop()

	streak := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// Storage writes run on their own deadline, detached from any
		// request context that queued the events.
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		err := w.storage.StoreBatch(ctx, batch)
		cancel()

		if err != nil {
			streak++
			w.log.Error("audit storage write failed",
				slog.Int("events", len(batch)),
				slog.Int("streak", streak),
				slog.Any("error", err),
			)
			if serr := w.divert(batch); serr != nil {
				w.log.Error("audit spool fallback failed, events lost",
					slog.Int("events", len(batch)),
					slog.Any("error", serr),
				)
			}
			if streak == w.opts.FailureThreshold && w.opts.OnOutage != nil {
				w.opts.OnOutage(err, streak)
			}
		} else {
			streak = 0
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.events:
			batch = append(batch, e)
			if len(batch) >= w.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case e := <-w.events:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) divert(events []Event) error {
	if w.opts.Spool == nil {
		return ErrStorageUnavailable
	}
	return w.opts.Spool.Write(events)
}

// Close drains the buffer and stops the worker. The context bounds the
// shutdown; on expiry remaining events may be unflushed.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.closeOnce.Do(func() { close(w.done) })

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
