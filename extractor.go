package slr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// RunState is the state of the extractor's current run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// Input is one run request.
type Input struct {
	Mode        Mode
	Text        string      // ModeText
	Files       []InputFile // ModeFile
	Instruction string      // system instruction; may carry the table header markup
}

// Snapshot is a consistent copy of the run state for observers and pollers.
type Snapshot struct {
	RunID      string      `json:"runId,omitempty"`
	State      RunState    `json:"state"`
	Mode       Mode        `json:"mode,omitempty"`
	Completed  int         `json:"completed"`
	Total      int         `json:"total"`
	Units      []UnitState `json:"units,omitempty"`
	Table      string      `json:"table,omitempty"`
	Rows       int         `json:"rows"`
	Error      string      `json:"error,omitempty"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"` // nil while idle
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// Result is what a finished run leaves behind. After a failure it still
// holds every row accumulated before the failing unit.
type Result struct {
	RunID     string
	State     RunState
	Table     string
	Rows      []string
	Completed int
	Total     int
	Err       error
}

// Extractor drives work units through gateway → fragment extractor → table
// sequentially, one run at a time.
type Extractor struct {
	gateway *Gateway
	opts    Options
	log     *slog.Logger

	mu         sync.Mutex
	state      RunState
	runID      string
	mode       Mode
	table      *Table
	tracker    *Tracker
	runErr     error
	startedAt  time.Time
	finishedAt time.Time
}

// New returns an Extractor calling Gemini through client.
func New(client *genai.Client, opts ...Option) *Extractor {
	o := resolveOptions(opts)
	return newExtractor(NewGenaiInvoker(client, o.Logger), o)
}

// NewWithInvoker returns an Extractor using any Invoker, e.g. a mock.
func NewWithInvoker(inv Invoker, opts ...Option) *Extractor {
	return newExtractor(inv, resolveOptions(opts))
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Prompts == nil {
		o.Prompts = DefaultPrompts()
	}
	if o.BatchSize < 1 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

func newExtractor(inv Invoker, o Options) *Extractor {
	return &Extractor{
		gateway: NewGateway(inv, o),
		opts:    o,
		log:     o.Logger,
		state:   StateIdle,
	}
}

// Options returns the resolved options of the extractor.
func (x *Extractor) Options() Options { return x.opts }

// Units splits in into work units without running anything.
func (x *Extractor) Units(in Input) ([]WorkUnit, error) {
	switch in.Mode {
	case ModeText:
		if strings.TrimSpace(in.Text) == "" {
			return nil, &InputError{Mode: in.Mode, Err: ErrEmptyInput}
		}
		units := SplitText(in.Text, x.opts.BatchSize)
		if len(units) == 0 {
			return nil, &InputError{Mode: in.Mode, Err: ErrEmptyInput}
		}
		return units, nil
	case ModeFile:
		if len(in.Files) == 0 {
			return nil, &InputError{Mode: in.Mode, Err: ErrEmptyInput}
		}
		return SplitFiles(in.Files), nil
	default:
		return nil, &InputError{Mode: in.Mode, Err: fmt.Errorf("unknown mode %q", in.Mode)}
	}
}

// RunText is Run for pasted abstracts.
func (x *Extractor) RunText(ctx context.Context, text, instruction string) (*Result, error) {
	return x.Run(ctx, Input{Mode: ModeText, Text: text, Instruction: instruction})
}

// RunFiles is Run for uploaded documents.
func (x *Extractor) RunFiles(ctx context.Context, files []InputFile, instruction string) (*Result, error) {
	return x.Run(ctx, Input{Mode: ModeFile, Files: files, Instruction: instruction})
}

// Run processes every unit of in, in order, and stops at the first unit
// failure. Empty input returns an *InputError without touching any state;
// a request while another run is active returns ErrRunInProgress.
// On failure both the partial Result and the error are returned.
// Cancelling ctx stops the run before the next unit is dispatched.
func (x *Extractor) Run(ctx context.Context, in Input) (*Result, error) {
	units, err := x.Units(in)
	if err != nil {
		x.log.Debug("Run rejected", "mode", in.Mode, "error", err)
		return nil, err
	}

	runID, err := x.begin(in, units)
	if err != nil {
		return nil, err
	}
	x.log.Info("Run started", "run_id", runID, "mode", in.Mode, "units", len(units))
	x.notify()

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			x.update(func() error {
				x.failLocked(fmt.Errorf("run cancelled before %s: %w", unit.Label(), err))
				return nil
			})
			break
		}

		x.update(func() error { return x.tracker.Processing(unit.ID) })
		x.log.Debug("Dispatching unit", "unit", unit.Label(), "index", i+1, "total", len(units))

		raw, err := x.gateway.Invoke(ctx, unit, in.Instruction)
		if err != nil {
			x.update(func() error {
				x.failLocked(err)
				return x.tracker.Failed(unit.ID, err)
			})
			break
		}

		rows := ExtractRowsWithToken(raw, x.opts.HeaderToken)
		x.update(func() error {
			x.table.Append(rows)
			return x.tracker.Completed(unit.ID, len(rows))
		})
		x.log.Debug("Unit completed", "unit", unit.Label(), "rows", len(rows))

		if i < len(units)-1 {
			// a cancelled wait is reported by the ctx check of the next iteration
			_ = x.opts.Clock.Sleep(ctx, x.opts.UnitDelay)
		}
	}

	res := x.finish()
	x.notify()
	if res.Err != nil {
		x.log.Error("Run failed", "run_id", res.RunID, "completed", res.Completed, "total", res.Total, "error", res.Err)
		return res, res.Err
	}
	x.log.Info("Run succeeded", "run_id", res.RunID, "units", res.Total, "rows", len(res.Rows))
	return res, nil
}

func (x *Extractor) begin(in Input, units []WorkUnit) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state == StateRunning {
		return "", ErrRunInProgress
	}
	x.state = StateRunning
	x.runID = uuid.New().String()
	x.mode = in.Mode
	x.table = NewTable(HeaderFromInstruction(in.Instruction))
	x.tracker = NewTracker(units)
	x.runErr = nil
	x.startedAt = time.Now().UTC()
	x.finishedAt = time.Time{}
	return x.runID, nil
}

// update applies fn under the run lock and notifies observers afterwards, so
// no observer sees a half-applied unit transition.
func (x *Extractor) update(fn func() error) {
	x.mu.Lock()
	err := fn()
	x.mu.Unlock()
	if err != nil {
		x.log.Warn("Status update rejected", "error", err)
	}
	x.notify()
}

// failLocked records the run error; only the first one is kept.
func (x *Extractor) failLocked(err error) {
	if x.runErr == nil {
		x.runErr = err
	}
}

func (x *Extractor) finish() *Result {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.finishedAt = time.Now().UTC()
	if x.runErr != nil {
		x.state = StateFailed
	} else {
		x.state = StateSucceeded
	}
	completed, total := x.tracker.Counts()
	return &Result{
		RunID:     x.runID,
		State:     x.state,
		Table:     x.table.Markdown(),
		Rows:      x.table.Rows(),
		Completed: completed,
		Total:     total,
		Err:       x.runErr,
	}
}

// Snapshot returns a consistent copy of the current run state.
func (x *Extractor) Snapshot() Snapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.snapshotLocked()
}

func (x *Extractor) snapshotLocked() Snapshot {
	s := Snapshot{
		RunID: x.runID,
		State: x.state,
		Mode:  x.mode,
	}
	if !x.startedAt.IsZero() {
		t := x.startedAt
		s.StartedAt = &t
	}
	if !x.finishedAt.IsZero() {
		t := x.finishedAt
		s.FinishedAt = &t
	}
	if x.tracker != nil {
		s.Completed, s.Total = x.tracker.Counts()
		s.Units = x.tracker.Units()
	}
	if x.table != nil {
		s.Table = x.table.Markdown()
		s.Rows = x.table.Len()
	}
	if x.runErr != nil {
		s.Error = x.runErr.Error()
	}
	return s
}

func (x *Extractor) notify() {
	if len(x.opts.Observers) == 0 {
		return
	}
	s := x.Snapshot()
	for _, obs := range x.opts.Observers {
		obs(s)
	}
}

// Clear discards the previous run and returns to idle. It is rejected while
// a run is active.
func (x *Extractor) Clear() error {
	x.mu.Lock()
	if x.state == StateRunning {
		x.mu.Unlock()
		return ErrRunInProgress
	}
	x.state = StateIdle
	x.runID = ""
	x.mode = ""
	x.table = nil
	x.tracker = nil
	x.runErr = nil
	x.startedAt = time.Time{}
	x.finishedAt = time.Time{}
	x.mu.Unlock()

	x.notify()
	return nil
}
