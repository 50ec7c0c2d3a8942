// Package pipeline runs batches of conversions under a concurrency cap.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/convert"
	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Converter performs one conversion. *convert.Engine satisfies it.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) convert.Result
}

// Coordinator submits batches to a Converter.
type Coordinator struct {
	conv Converter
	log  *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil logger means slog.Default().
func NewCoordinator(conv Converter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{conv: conv, log: logger}
}

// Submit validates reqs and starts converting them with at most
// maxConcurrent running at once. Requests are admitted in submission order.
// A request whose destination an earlier request already uses is not run;
// it is recorded as a WriteError failure.
//
// ctx bounds the whole batch: cancelling it stops admission and interrupts
// in-flight conversions at their next checkpoint. Batch.Cancel stops
// admission and stops conversions that have not decoded their source yet;
// the ones past decode finish.
func (c *Coordinator) Submit(ctx context.Context, reqs []convert.Request, maxConcurrent int) (*Batch, error) {
	if maxConcurrent < 1 {
		return nil, apperrors.Newf(apperrors.KindInvalidConfiguration, "submit", "",
			"maxConcurrent must be >= 1, got %d", maxConcurrent)
	}
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	admit, cancel := context.WithCancel(ctx)
	b := &Batch{
		id:      uuid.NewString(),
		total:   len(reqs),
		workers: maxConcurrent,
		events:  make(chan convert.Result, len(reqs)),
		done:    make(chan struct{}),
		cancel:  cancel,
		log:     c.log,
		started: time.Now(),
	}
	b.report.BatchID = b.id
	b.report.Results = make([]convert.Result, 0, len(reqs))

	c.log.Info("batch submitted",
		"batch", b.id, "requests", len(reqs), "max_concurrent", maxConcurrent)

	b.collide = collisions(reqs)

	go b.run(ctx, admit, c.conv, reqs, semaphore.NewWeighted(int64(maxConcurrent)))
	return b, nil
}

// Run submits reqs and waits for the report.
func (c *Coordinator) Run(ctx context.Context, reqs []convert.Request, maxConcurrent int) (Report, error) {
	b, err := c.Submit(ctx, reqs, maxConcurrent)
	if err != nil {
		return Report{}, err
	}
	defer b.Close()
	return b.Await(), nil
}

func validateRequests(reqs []convert.Request) error {
	if len(reqs) == 0 {
		return apperrors.Newf(apperrors.KindInvalidConfiguration, "submit", "", "no requests")
	}
	for i, r := range reqs {
		if r.Destination == "" {
			return apperrors.Newf(apperrors.KindInvalidConfiguration, "submit", r.Source,
				"request %d has no destination", i)
		}
	}
	return nil
}

// collisions maps the index of every request whose destination an earlier
// request already claimed to that earlier request's source.
func collisions(reqs []convert.Request) map[int]string {
	seen := make(map[string]string, len(reqs))
	dup := map[int]string{}
	for i, r := range reqs {
		dst := filepath.Clean(r.Destination)
		if first, ok := seen[dst]; ok {
			dup[i] = first
			continue
		}
		seen[dst] = r.Source
	}
	return dup
}

// collided builds the result for a request that lost its destination to
// an earlier request in the same batch.
func collided(req convert.Request, first string) convert.Result {
	return convert.Result{
		Request: req,
		Err: apperrors.Newf(apperrors.KindWriteError, "write", req.Destination,
			"destination already claimed by %s", first),
	}
}

// State is the lifecycle state of a Batch.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCancelled
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Report is the outcome of a batch. Results are in completion order.
type Report struct {
	BatchID   string
	Results   []convert.Result
	Succeeded int
	Failed    int // failures other than cancellation
	Cancelled int
	Elapsed   time.Duration
}

// Total returns the number of results.
func (r Report) Total() int { return len(r.Results) }

// HasFailures reports whether any request did not succeed.
func (r Report) HasFailures() bool { return r.Failed > 0 || r.Cancelled > 0 }

func (r *Report) add(res convert.Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.OK():
		r.Succeeded++
	case res.Kind() == apperrors.KindCancelled:
		r.Cancelled++
	default:
		r.Failed++
	}
}

// Batch is a handle on one submitted batch.
type Batch struct {
	id      string
	total   int
	workers int
	started time.Time
	log     *slog.Logger

	state     atomic.Int32
	cancelled atomic.Bool
	cancel    context.CancelFunc

	events  chan convert.Result
	done    chan struct{}
	collide map[int]string

	mu     sync.Mutex
	report Report
}

// ID returns the batch id.
func (b *Batch) ID() string { return b.id }

// Workers returns the concurrency cap the batch was submitted with.
func (b *Batch) Workers() int { return b.workers }

// State returns the current lifecycle state.
func (b *Batch) State() State { return State(b.state.Load()) }

// WasCancelled reports whether Cancel was called or the submit context ended.
func (b *Batch) WasCancelled() bool { return b.cancelled.Load() }

// Results streams each result as it completes. The channel is closed once
// the batch is done. It can be consumed once; Await is unaffected by it.
func (b *Batch) Results() <-chan convert.Result { return b.events }

// Done is closed when every request has a result.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Cancel stops admission and stops running conversions that have not
// decoded their source yet. Conversions past decode finish and keep their
// results; the rest are recorded as Cancelled. Safe to call more
// than once and after completion.
func (b *Batch) Cancel() {
	if b.cancelled.CompareAndSwap(false, true) {
		b.log.Info("batch cancel requested", "batch", b.id)
	}
	for {
		s := b.state.Load()
		if State(s) == StateDone || State(s) == StateCancelled {
			break
		}
		if b.state.CompareAndSwap(s, int32(StateCancelled)) {
			break
		}
	}
	b.cancel()
}

// Await blocks until the batch is done and returns its report. Repeated
// calls return the same report.
func (b *Batch) Await() Report {
	<-b.done
	return b.snapshot()
}

// AwaitContext is Await bounded by ctx.
func (b *Batch) AwaitContext(ctx context.Context) (Report, error) {
	select {
	case <-b.done:
		return b.snapshot(), nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

// Close cancels the batch if it is still running and waits for it to
// drain. Use it with defer to scope a batch's lifetime.
func (b *Batch) Close() {
	select {
	case <-b.done:
		return
	default:
	}
	b.Cancel()
	<-b.done
}

func (b *Batch) snapshot() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.report
	r.Results = append([]convert.Result(nil), b.report.Results...)
	return r
}

func (b *Batch) record(res convert.Result) {
	b.mu.Lock()
	b.report.add(res)
	b.mu.Unlock()
	b.events <- res
}

func (b *Batch) run(ctx, admit context.Context, conv Converter, reqs []convert.Request, sem *semaphore.Weighted) {
	var wg sync.WaitGroup

	for i, req := range reqs {
		if first, ok := b.collide[i]; ok {
			b.record(collided(req, first))
			continue
		}

		// Acquire may succeed on an already-cancelled context, so admission
		// is re-checked after it returns.
		err := sem.Acquire(admit, 1)
		if err == nil && admit.Err() != nil {
			sem.Release(1)
			err = admit.Err()
		}
		if err != nil {
			b.cancelled.Store(true)
			b.skip(reqs[i:])
			break
		}

		b.state.CompareAndSwap(int32(StatePending), int32(StateRunning))
		wg.Add(1)
		go func(req convert.Request) {
			defer wg.Done()
			defer sem.Release(1)
			b.record(conv.Convert(convert.WithFinishContext(admit, ctx), req))
		}(req)
	}
	wg.Wait()
	b.finish()
}

func (b *Batch) skip(pending []convert.Request) {
	b.log.Info("batch cancelled", "batch", b.id, "skipped", len(pending))
	for _, req := range pending {
		b.record(convert.Cancelled(req, "batch cancelled before start"))
	}
}

func (b *Batch) finish() {
	b.mu.Lock()
	b.report.Elapsed = time.Since(b.started)
	r := b.report
	b.mu.Unlock()

	b.state.Store(int32(StateDone))
	b.cancel()
	close(b.events)
	close(b.done)

	b.log.Info("batch done",
		"batch", b.id, "succeeded", r.Succeeded, "failed", r.Failed,
		"cancelled", r.Cancelled, "elapsed", r.Elapsed.Round(time.Millisecond))
}
