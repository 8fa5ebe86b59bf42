// Package engine assembles a parsed program configuration into an
// ordered node list and drives it one cycle at a time, in either
// real-time or batch-generator mode.
//
// Grounded on core/engine.py's UnifiedEngine (two-pass deferred
// construction so every instance exists before any ExpressionNode
// resolves bare instance references, algorithm nodes concatenated ahead
// of expression nodes regardless of declaration interleaving) and the
// teacher's internal/executor/simulation_loop.go (phase tracking,
// goroutine fan-out, ordered shutdown). A single driver goroutine owns
// the clock, store and nodes; RunRealtime adds one worker goroutine per
// sink so collaborators never run on the driver.
package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myorg/cyclesim/cyclesim/internal/cerrors"
	"github.com/myorg/cyclesim/cyclesim/internal/clock"
	"github.com/myorg/cyclesim/cyclesim/internal/config"
	"github.com/myorg/cyclesim/cyclesim/internal/expr"
	"github.com/myorg/cyclesim/cyclesim/internal/lag"
	"github.com/myorg/cyclesim/cyclesim/internal/node"
	"github.com/myorg/cyclesim/cyclesim/internal/program"
	"github.com/myorg/cyclesim/cyclesim/internal/registry"
	"github.com/myorg/cyclesim/cyclesim/internal/store"
)

// Snapshot is the flat per-cycle record emitted to collaborators: every
// declared variable and projected instance attribute, plus the five
// reserved fields every cycle carries.
type Snapshot struct {
	Values     map[string]float64
	CycleCount uint64
	NeedSample bool
	TimeStr    string
	SimTime    float64
	ExecRatio  float64
}

// LivePublisher receives every snapshot, best-effort. Implementations
// should honor ctx's deadline; a call that ignores it can still only
// delay its own worker goroutine, never the driver loop.
type LivePublisher interface {
	Publish(ctx context.Context, snapshot Snapshot) error
}

// HistorySink receives only snapshots with NeedSample true.
type HistorySink interface {
	Record(ctx context.Context, snapshot Snapshot, wallClock time.Time, needSample bool) error
	Close() error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Snapshot) error { return nil }

type nopSink struct{}

func (nopSink) Record(context.Context, Snapshot, time.Time, bool) error { return nil }
func (nopSink) Close() error                                            { return nil }

// publishQueueSize and historyQueueSize bound the channels feeding the
// two sink worker goroutines. The live publisher gets the larger queue
// per spec's "never drop live updates" preference; the history sink
// uses a smaller queue and drops under sustained backpressure, matching
// the teacher's rate_limiter.go non-blocking-send-or-drop policy.
const (
	publishQueueSize = 64
	historyQueueSize = 16
)

// Phase describes the engine's current lifecycle stage.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
	PhaseDone     Phase = "done"
)

// Diagnostic is a non-fatal event worth surfacing to an operator: a
// clock overrun warning or a collaborator sink failure. Engine keeps a
// small bounded ring of the most recent ones so a caller (the CLI, a
// status endpoint) can inspect what went wrong without scraping stderr.
type Diagnostic struct {
	CycleCount uint64
	Source     string
	Message    string
	At         time.Time
}

const maxDiagnostics = 50

// sinkRecord pairs a snapshot with the wall-clock time it was captured,
// queued for the history worker goroutine.
type sinkRecord struct {
	snap      Snapshot
	wallClock time.Time
}

// Engine drives one program: a clock, a variable store, and the ordered
// node list built from a ProgramConfig.
type Engine struct {
	clk       *clock.Clock
	vars      *store.VariableStore
	nodes     []node.Node
	instances map[string]program.Instance
	cycleTime float64

	publisher   LivePublisher
	historySink HistorySink

	publishCh chan Snapshot
	historyCh chan sinkRecord
	workerWG  sync.WaitGroup

	phase atomic.Value // Phase
	done  chan struct{}
	mu    sync.Mutex

	diagMu      sync.Mutex
	diagnostics []Diagnostic
}

// New builds an Engine from a fully parsed program configuration. It
// performs the same two-pass construction as UnifiedEngine.from_program_config:
// every algorithm/model instance is created first (in declaration order),
// so that by the time any ExpressionNode's bare-instance rewrite runs,
// every instance name it might reference already resolves.
func New(cfg *config.ProgramConfig) (*Engine, error) {
	clk, err := clock.New(cfg.Clock)
	if err != nil {
		return nil, cerrors.NewConfigError("clock", "%v", err)
	}

	vars := store.NewVariableStore()
	factory := registry.NewInstanceFactory(cfg.Clock.CycleTime)

	instances := make(map[string]program.Instance)
	var algoItems []config.ProgramItem
	var varItems []config.ProgramItem

	for _, item := range cfg.Program {
		if isVariableType(item.Type) {
			varItems = append(varItems, item)
			continue
		}
		inst, err := factory.Create(item.Name, item.Type, item.InitArgs)
		if err != nil {
			return nil, err
		}
		instances[item.Name] = inst
		algoItems = append(algoItems, item)
	}

	exprInstances := make(map[string]expr.Instance, len(instances))
	for name, inst := range instances {
		exprInstances[name] = inst
	}
	evaluator := expr.NewEvaluator(vars, exprInstances)

	nodes := make([]node.Node, 0, len(algoItems)+len(varItems))
	for _, item := range algoItems {
		inst := instances[item.Name]
		n, err := node.NewAlgorithmNode(item.Name, inst, item.Expression, inst.StoredAttributes(), evaluator)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for _, item := range varItems {
		n, err := node.NewExpressionNode(item.Name, item.Expression, evaluator)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	for name, depth := range cfg.LagRequirements {
		if !cfg.ExplicitRecordLength {
			depth = lag.RecordLength(depth)
		} else {
			depth = cfg.RecordLength
		}
		vars.ConfigureLag(name, depth)
	}

	for name, inst := range instances {
		for _, attr := range inst.StoredAttributes() {
			if v, ok := inst.Attr(attr); ok {
				vars.Set(name+"."+attr, v)
			}
		}
	}

	e := &Engine{
		clk:         clk,
		vars:        vars,
		nodes:       nodes,
		instances:   instances,
		cycleTime:   cfg.Clock.CycleTime,
		publisher:   nopPublisher{},
		historySink: nopSink{},
		done:        make(chan struct{}),
	}
	e.phase.Store(PhaseIdle)
	return e, nil
}

func isVariableType(t string) bool {
	return strings.EqualFold(t, registry.VariableTypeName)
}

// SetPublisher attaches a live publisher. Passing nil restores the
// no-op default.
func (e *Engine) SetPublisher(p LivePublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	e.publisher = p
}

// SetHistorySink attaches a history sink. Passing nil restores the no-op
// default.
func (e *Engine) SetHistorySink(s HistorySink) {
	if s == nil {
		s = nopSink{}
	}
	e.historySink = s
}

// Clock exposes the underlying clock, mainly so a caller can inspect
// Clock.Stats() for overrun observability.
func (e *Engine) Clock() *clock.Clock { return e.clk }

// InstanceNames returns the names of every constructed algorithm/model
// instance, for status reporting.
func (e *Engine) InstanceNames() []string {
	names := make([]string, 0, len(e.instances))
	for name := range e.instances {
		names = append(names, name)
	}
	return names
}

// Phase reports the engine's current lifecycle stage.
func (e *Engine) Phase() Phase {
	return e.phase.Load().(Phase)
}

func (e *Engine) recordDiagnostic(source string, err error) {
	e.diagMu.Lock()
	defer e.diagMu.Unlock()
	e.diagnostics = append(e.diagnostics, Diagnostic{
		CycleCount: e.clk.CycleCount(),
		Source:     source,
		Message:    err.Error(),
		At:         time.Now(),
	})
	if len(e.diagnostics) > maxDiagnostics {
		e.diagnostics = e.diagnostics[len(e.diagnostics)-maxDiagnostics:]
	}
}

// Diagnostics returns the most recent engine/sink diagnostics followed by
// the most recent clock-overrun warnings, each group oldest first and
// capped at maxDiagnostics entries.
func (e *Engine) Diagnostics() []Diagnostic {
	e.diagMu.Lock()
	sinkDiags := make([]Diagnostic, len(e.diagnostics))
	copy(sinkDiags, e.diagnostics)
	e.diagMu.Unlock()

	warnings := e.clk.Warnings()
	if len(warnings) > maxDiagnostics {
		warnings = warnings[len(warnings)-maxDiagnostics:]
	}
	for _, w := range warnings {
		sinkDiags = append(sinkDiags, Diagnostic{
			CycleCount: w.CycleCount,
			Source:     "clock",
			Message:    fmt.Sprintf("cycle overran: execution took %v against a %v period", w.ExecutionTime, w.CycleTime),
		})
	}
	return sinkDiags
}

// StepOnce executes exactly one cycle: every algorithm node in
// declaration order, then every expression node in declaration order,
// then steps the clock. Returns the resulting snapshot.
func (e *Engine) StepOnce() (Snapshot, error) {
	t := e.clk.SimTime() + e.cycleTime

	for _, n := range e.nodes {
		if err := n.Step(e.vars); err != nil {
			return Snapshot{}, err
		}
	}

	res := e.clk.Step()

	return Snapshot{
		Values:     e.vars.Snapshot(),
		CycleCount: res.CycleCount,
		NeedSample: res.NeedSample,
		TimeStr:    res.TimeStr,
		SimTime:    t,
		ExecRatio:  res.ExecRatio,
	}, nil
}

// RunGenerator drives GENERATOR mode for exactly n cycles, collecting
// every snapshot. It never sleeps and never fans out to collaborators;
// callers of a batch run consume the returned slice directly.
func (e *Engine) RunGenerator(n int) ([]Snapshot, error) {
	e.clk.Start()
	defer e.clk.Stop()

	results := make([]Snapshot, 0, n)
	for i := 0; i < n; i++ {
		snap, err := e.StepOnce()
		if err != nil {
			return results, err
		}
		results = append(results, snap)
	}
	return results, nil
}

// sinkCallTimeout bounds a single sink call, so one hung call can only
// occupy its worker for one cycle's worth of time rather than wedging
// the queue behind it indefinitely, grounded on rate_limiter.go's
// WaitWithTimeout deadline idiom.
func (e *Engine) sinkCallTimeout() time.Duration {
	d := time.Duration(e.cycleTime * float64(time.Second))
	if d <= 0 {
		d = time.Second
	}
	return d
}

// shutdownGrace bounds how long RunRealtime's shutdown waits for the
// sink workers to drain. A well-behaved sink call is already bounded by
// sinkCallTimeout via its ctx; this is the backstop for one that ignores
// ctx outright, so a single misbehaving collaborator can delay shutdown
// but can never hang it forever.
func (e *Engine) shutdownGrace() time.Duration {
	d := 4 * e.sinkCallTimeout()
	if d < time.Second {
		d = time.Second
	}
	return d
}

// publishWorker drains the publish queue on its own goroutine, one call
// at a time, so a slow or hung LivePublisher never blocks StepOnce.
func (e *Engine) publishWorker(ctx context.Context, ch <-chan Snapshot) {
	defer e.workerWG.Done()
	for snap := range ch {
		callCtx, cancel := context.WithTimeout(ctx, e.sinkCallTimeout())
		err := e.publisher.Publish(callCtx, snap)
		cancel()
		if err != nil {
			pubErr := cerrors.NewSinkError("live", err)
			e.recordDiagnostic("sink:live", pubErr)
			fmt.Fprintln(os.Stderr, pubErr)
		}
	}
}

// historyWorker is publishWorker's counterpart for the history sink.
func (e *Engine) historyWorker(ctx context.Context, ch <-chan sinkRecord) {
	defer e.workerWG.Done()
	for rec := range ch {
		callCtx, cancel := context.WithTimeout(ctx, e.sinkCallTimeout())
		err := e.historySink.Record(callCtx, rec.snap, rec.wallClock, true)
		cancel()
		if err != nil {
			histErr := cerrors.NewSinkError("history", err)
			e.recordDiagnostic("sink:history", histErr)
			fmt.Fprintln(os.Stderr, histErr)
		}
	}
}

// RunRealtime drives REALTIME mode indefinitely, fanning each snapshot
// out to the attached publisher and, for sampled cycles, the attached
// history sink via two worker goroutines fed by bounded channels. It
// observes ctx cancellation between cycles and returns a
// *cerrors.CancelRequested cleanly once canceled.
//
// Per spec.md §5, the driver goroutine never waits on a sink call
// itself: it only ever waits up to one cycle's worth of time to hand a
// snapshot to its worker's queue. A full history queue drops the
// snapshot outright (rate_limiter.go's non-blocking-send-or-drop
// policy); a full publish queue gets one cycle's grace before also
// dropping, since spec.md §5 asks live updates not be dropped casually
// but still forbids stalling the driver.
func (e *Engine) RunRealtime(ctx context.Context) error {
	e.phase.Store(PhaseRunning)
	e.clk.Start()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	e.publishCh = make(chan Snapshot, publishQueueSize)
	e.historyCh = make(chan sinkRecord, historyQueueSize)
	e.workerWG.Add(2)
	go e.publishWorker(workerCtx, e.publishCh)
	go e.historyWorker(workerCtx, e.historyCh)

	defer func() {
		e.phase.Store(PhaseStopping)
		e.clk.Stop()
		close(e.publishCh)
		close(e.historyCh)

		workersDone := make(chan struct{})
		go func() {
			e.workerWG.Wait()
			close(workersDone)
		}()
		select {
		case <-workersDone:
		case <-time.After(e.shutdownGrace()):
			e.recordDiagnostic("engine", fmt.Errorf("shutdown gave up after %v waiting on a sink worker stuck past its call deadline", e.shutdownGrace()))
		}
		cancelWorkers()

		// If shutdownGrace was exceeded, the stuck worker goroutine is
		// simply abandoned (it will exit on its own once its call
		// finally returns); historySink's own mutex still serializes any
		// late call against the Close below, so this can surface as a
		// logged write-after-close error but never a data race.
		if err := e.historySink.Close(); err != nil {
			sinkErr := cerrors.NewSinkError("history", err)
			e.recordDiagnostic("sink:history", sinkErr)
			fmt.Fprintln(os.Stderr, sinkErr)
		}
		e.phase.Store(PhaseDone)
	}()

	for {
		select {
		case <-ctx.Done():
			return &cerrors.CancelRequested{CycleCount: e.clk.CycleCount()}
		case <-e.done:
			return &cerrors.CancelRequested{CycleCount: e.clk.CycleCount()}
		default:
		}

		snap, err := e.StepOnce()
		if err != nil {
			return err
		}

		publishTimer := time.NewTimer(e.sinkCallTimeout())
		select {
		case e.publishCh <- snap:
		case <-publishTimer.C:
			e.recordDiagnostic("sink:live", fmt.Errorf("dropped snapshot: publish queue full"))
		}
		publishTimer.Stop()

		if snap.NeedSample {
			select {
			case e.historyCh <- sinkRecord{snap: snap, wallClock: time.Now()}:
			default:
				e.recordDiagnostic("sink:history", fmt.Errorf("dropped snapshot: history queue full"))
			}
		}
	}
}

// Stop requests RunRealtime return after its current cycle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}
