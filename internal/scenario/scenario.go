// Package scenario runs scripted lending scenarios against a fresh engine
// on a virtual clock and checks the display states the renderer would see.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/lending"
	"libralend/internal/schedule"
)

// StepKind identifies what a step does.
type StepKind string

const (
	StepIssue          StepKind = "issue"
	StepReturn         StepKind = "return"
	StepReturnRejected StepKind = "return_rejected"
	StepAdvance        StepKind = "advance"
	StepExpect         StepKind = "expect"
	StepExpectEmpty    StepKind = "expect_empty"
)

// Step is one scripted action or assertion.
type Step struct {
	Kind    StepKind
	Item    string
	Advance time.Duration
	Want    lending.Display
}

func Issue(item string) Step          { return Step{Kind: StepIssue, Item: item} }
func Return(item string) Step         { return Step{Kind: StepReturn, Item: item} }
func ReturnRejected(item string) Step { return Step{Kind: StepReturnRejected, Item: item} }
func Advance(d time.Duration) Step    { return Step{Kind: StepAdvance, Advance: d} }
func ExpectEmpty() Step               { return Step{Kind: StepExpectEmpty} }

func Expect(item string, want lending.Display) Step {
	return Step{Kind: StepExpect, Item: item, Want: want}
}

// Scenario is a named script with the hypothesis it demonstrates.
type Scenario struct {
	Name       string
	Hypothesis string
	Catalog    []catalog.Item
	Lenient    bool // accept returns from any status
	Steps      []Step
}

// Observation is a display state seen at an expect step.
type Observation struct {
	Elapsed time.Duration   `json:"elapsed"`
	Item    string          `json:"item"`
	Display lending.Display `json:"display"`
}

// Violation is a step whose outcome differed from the script.
type Violation struct {
	Step     int    `json:"step"`
	Item     string `json:"item"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Result captures one scenario run.
type Result struct {
	ScenarioName   string           `json:"scenario_name"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	Duration       time.Duration    `json:"duration"`
	VirtualElapsed time.Duration    `json:"virtual_elapsed"`
	HypothesisHeld bool             `json:"hypothesis_held"`
	Violations     []Violation      `json:"violations"`
	Observations   []Observation    `json:"observations"`
	Changes        []lending.Change `json:"changes"`
}

// Runner executes scenarios with fixed delays.
type Runner struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	approvalDelay time.Duration
	issueDelay    time.Duration

	mu      sync.Mutex
	results []Result
}

func NewRunner(approvalDelay, issueDelay time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		tracer:        otel.Tracer("libralend/scenario"),
		logger:        logger,
		approvalDelay: approvalDelay,
		issueDelay:    issueDelay,
	}
}

var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes one scenario on a fresh engine and manual clock.
func (r *Runner) Run(ctx context.Context, s Scenario) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "scenario.run",
		trace.WithAttributes(attribute.String("scenario.name", s.Name)),
	)
	defer span.End()

	provider, err := catalog.NewStatic(s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	clock := schedule.NewManual(epoch)
	opts := []lending.Option{
		lending.WithScheduler(clock),
		lending.WithDelays(r.approvalDelay, r.issueDelay),
		lending.WithLogger(r.logger),
	}
	if s.Lenient {
		opts = append(opts, lending.WithLenientReturn())
	}
	engine := lending.NewEngine(opts...)
	defer engine.Close()
	board := circulation.NewBoard(provider, engine, "")

	result := &Result{
		ScenarioName: s.Name,
		StartTime:    time.Now(),
		Violations:   make([]Violation, 0),
		Observations: make([]Observation, 0),
	}
	engine.Subscribe(func(c lending.Change) {
		result.Changes = append(result.Changes, c)
	})

	for i, step := range s.Steps {
		span.AddEvent(string(step.Kind), trace.WithAttributes(attribute.String("item.id", step.Item)))

		switch step.Kind {
		case StepIssue:
			engine.RequestIssue(ctx, step.Item)

		case StepReturn, StepReturnRejected:
			err := engine.RequestReturn(ctx, step.Item)
			rejected := errors.Is(err, lending.ErrInvalidTransition)
			if wantRejected := step.Kind == StepReturnRejected; rejected != wantRejected {
				result.Violations = append(result.Violations, Violation{
					Step:     i,
					Item:     step.Item,
					Expected: fmt.Sprintf("rejected=%t", wantRejected),
					Actual:   fmt.Sprintf("rejected=%t", rejected),
				})
			}

		case StepAdvance:
			clock.Advance(step.Advance)

		case StepExpect:
			got := board.Status(step.Item).Display
			result.Observations = append(result.Observations, Observation{
				Elapsed: clock.Now().Sub(epoch),
				Item:    step.Item,
				Display: got,
			})
			if got != step.Want {
				result.Violations = append(result.Violations, Violation{
					Step:     i,
					Item:     step.Item,
					Expected: step.Want.String(),
					Actual:   got.String(),
				})
			}

		case StepExpectEmpty:
			view, err := board.View(ctx)
			if err != nil {
				return nil, fmt.Errorf("scenario %s step %d: %w", s.Name, i, err)
			}
			if !view.Empty {
				result.Violations = append(result.Violations, Violation{
					Step:     i,
					Expected: circulation.EmptyCatalogMessage,
					Actual:   fmt.Sprintf("%d items", len(view.Items)),
				})
			}

		default:
			return nil, fmt.Errorf("scenario %s step %d: unknown step kind %q", s.Name, i, step.Kind)
		}
	}

	result.VirtualElapsed = clock.Now().Sub(epoch)
	result.HypothesisHeld = len(result.Violations) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	r.mu.Lock()
	r.results = append(r.results, *result)
	r.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	r.logger.Info("scenario finished",
		slog.String("scenario", s.Name),
		slog.Bool("hypothesis_held", result.HypothesisHeld),
	)

	return result, nil
}

// RunAll runs scenarios in order, reporting each to w, and returns how many
// held.
func (r *Runner) RunAll(ctx context.Context, w io.Writer, scenarios []Scenario) (int, error) {
	held := 0
	for i, s := range scenarios {
		fmt.Fprintf(w, "\nScenario %d/%d: %s\n", i+1, len(scenarios), s.Name)
		fmt.Fprintf(w, "Hypothesis: %s\n", s.Hypothesis)

		result, err := r.Run(ctx, s)
		if err != nil {
			return held, err
		}
		Report(w, result)
		if result.HypothesisHeld {
			held++
		}
	}
	return held, nil
}

// Results returns a copy of every result recorded so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// Report prints a human-readable summary of result.
func Report(w io.Writer, result *Result) {
	if result.HypothesisHeld {
		fmt.Fprintln(w, "PASS hypothesis held")
	} else {
		fmt.Fprintln(w, "FAIL hypothesis violated")
	}

	for _, v := range result.Violations {
		fmt.Fprintf(w, "   - step %d %s: expected %s, got %s\n", v.Step, v.Item, v.Expected, v.Actual)
	}
	for _, c := range result.Changes {
		fmt.Fprintf(w, "   %8s  %-12s %s -> %s\n", c.At.Sub(epoch), c.Item, c.From, c.To)
	}

	fmt.Fprintf(w, "Virtual time: %s\n", result.VirtualElapsed)
}
