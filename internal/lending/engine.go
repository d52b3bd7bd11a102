// Package lending implements the per-item lending status engine: issue
// requests go through a simulated approval and are issued after fixed
// delays, and issued items can be returned.
package lending

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/schedule"
)

const (
	DefaultApprovalDelay = 2000 * time.Millisecond
	DefaultIssueDelay    = 1000 * time.Millisecond
)

// Option configures an engine.
type Option func(*engine)

// WithScheduler sets the clock transitions are deferred on.
func WithScheduler(s schedule.Scheduler) Option {
	return func(e *engine) { e.clock = s }
}

// WithDelays sets the approval delay and the issue delay that follows it.
func WithDelays(approval, issue time.Duration) Option {
	return func(e *engine) {
		e.approvalDelay = approval
		e.issueDelay = issue
	}
}

// WithLenientReturn accepts a return from any status, not only Issued.
func WithLenientReturn() Option {
	return func(e *engine) { e.strictReturn = false }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *engine) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *engine) { e.tracer = t }
}

// engine implements the Service interface.
type engine struct {
	mu        sync.Mutex
	statuses  map[string]Status
	closed    bool
	observers map[int]func(Change)
	nextObs   int
	seq       uint64 // last transition handed to notify

	// delivery orders observer calls by seq
	deliveryMu sync.Mutex
	delivery   *sync.Cond
	delivered  uint64

	clock         schedule.Scheduler
	approvalDelay time.Duration
	issueDelay    time.Duration
	strictReturn  bool

	logger *slog.Logger
	tracer trace.Tracer
}

// NewEngine creates a lending engine. Without options it runs on the wall
// clock with the default delays and rejects returns of items that are not
// issued.
func NewEngine(opts ...Option) Service {
	e := &engine{
		statuses:      make(map[string]Status),
		observers:     make(map[int]func(Change)),
		clock:         schedule.Real(),
		approvalDelay: DefaultApprovalDelay,
		issueDelay:    DefaultIssueDelay,
		strictReturn:  true,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:        otel.Tracer("libralend/lending"),
	}
	e.delivery = sync.NewCond(&e.deliveryMu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequestIssue moves an available item to PendingApproval and schedules the
// approval. Requests for items in any other status are absorbed.
func (e *engine) RequestIssue(ctx context.Context, item string) {
	_, span := e.tracer.Start(ctx, "lending.request_issue",
		trace.WithAttributes(attribute.String("item.id", item)),
	)
	defer span.End()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		span.SetAttributes(attribute.Bool("engine.closed", true))
		return
	}
	from := e.statuses[item]
	if from != StatusAvailable {
		e.mu.Unlock()
		span.SetAttributes(
			attribute.String("item.status", from.String()),
			attribute.Bool("request.absorbed", true),
		)
		e.logger.Debug("issue request absorbed",
			slog.String("item", item),
			slog.String("status", from.String()),
		)
		return
	}
	change, n := e.setLocked(item, StatusPendingApproval, CauseIssueRequested)
	e.mu.Unlock()

	span.SetAttributes(attribute.String("item.status", StatusPendingApproval.String()))
	e.logger.Info("issue requested", slog.String("item", item))
	e.notify(n, change)

	e.clock.AfterFunc(e.approvalDelay, func() { e.approve(item) })
}

// approve fires after the approval delay. It applies on top of whatever the
// item's status is by then and chains the issue timer unconditionally.
func (e *engine) approve(item string) {
	if !e.advance(item, StatusApproved, CauseApprovalGranted) {
		return
	}
	e.clock.AfterFunc(e.issueDelay, func() { e.advance(item, StatusIssued, CauseIssued) })
}

// advance reports false once the engine has been closed.
func (e *engine) advance(item string, to Status, cause Cause) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	// Returned is sticky; late timers do not resurrect the item.
	if e.statuses[item] == StatusReturned {
		e.mu.Unlock()
		e.logger.Debug("timer absorbed by returned item",
			slog.String("item", item),
			slog.String("cause", string(cause)),
		)
		return true
	}
	change, n := e.setLocked(item, to, cause)
	e.mu.Unlock()

	e.logger.Info("lending status advanced",
		slog.String("item", item),
		slog.String("status", to.String()),
	)
	e.notify(n, change)
	return true
}

// RequestReturn moves an issued item to Returned. Returning an item that is
// already Returned is a no-op.
func (e *engine) RequestReturn(ctx context.Context, item string) error {
	_, span := e.tracer.Start(ctx, "lending.request_return",
		trace.WithAttributes(attribute.String("item.id", item)),
	)
	defer span.End()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		span.SetAttributes(attribute.Bool("engine.closed", true))
		return nil
	}
	from := e.statuses[item]
	span.SetAttributes(attribute.String("item.status", from.String()))

	if from == StatusReturned {
		e.mu.Unlock()
		span.SetAttributes(attribute.Bool("request.absorbed", true))
		return nil
	}
	if e.strictReturn && from != StatusIssued {
		e.mu.Unlock()
		err := fmt.Errorf("%w: cannot return %q while %s", ErrInvalidTransition, item, from)
		span.RecordError(err)
		e.logger.Warn("return rejected",
			slog.String("item", item),
			slog.String("status", from.String()),
		)
		return err
	}
	change, n := e.setLocked(item, StatusReturned, CauseReturnRequested)
	e.mu.Unlock()

	e.logger.Info("item returned", slog.String("item", item))
	e.notify(n, change)
	return nil
}

func (e *engine) Status(item string) Display {
	return e.Lookup(item).Display()
}

func (e *engine) Lookup(item string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statuses[item]
}

func (e *engine) Snapshot() map[string]Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]Status, len(e.statuses))
	for item, s := range e.statuses {
		out[item] = s
	}
	return out
}

// Subscribe registers fn for every subsequent change. The returned function
// removes the subscription.
func (e *engine) Subscribe(fn func(Change)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

// Close tears the engine down. Timers that fire afterwards are dropped.
func (e *engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.observers = make(map[int]func(Change))
}

// setLocked applies a transition and returns it with its sequence number.
func (e *engine) setLocked(item string, to Status, cause Cause) (Change, uint64) {
	from := e.statuses[item]
	e.statuses[item] = to
	e.seq++
	return Change{
		Item:  item,
		From:  from,
		To:    to,
		Cause: cause,
		At:    e.clock.Now(),
	}, e.seq
}

// notify delivers change n once changes 1..n-1 have been delivered, so
// observers see transitions in the order they were applied even when a
// command and a timer race. Observers run without the state lock held and
// must not issue commands themselves.
func (e *engine) notify(n uint64, c Change) {
	e.deliveryMu.Lock()
	for e.delivered != n-1 {
		e.delivery.Wait()
	}
	e.deliveryMu.Unlock()

	e.mu.Lock()
	observers := make([]func(Change), 0, len(e.observers))
	for id := 0; id < e.nextObs; id++ {
		if fn, ok := e.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}

	e.deliveryMu.Lock()
	e.delivered = n
	e.delivery.Broadcast()
	e.deliveryMu.Unlock()
}
