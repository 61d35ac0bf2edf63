package btree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wayfarer-ai/btree-go/btree/emit"
	"github.com/wayfarer-ai/btree-go/btree/store"
)

// DefaultMaxTicks bounds TickUntilDone when no explicit limit is
// configured.
const DefaultMaxTicks = 1000

// Engine is the outer driver around a tree root.
//
// It enforces the cross-cutting policies the nodes themselves do not:
// the single-activation lock, tick counting, the auto-reset policy, the
// per-tick timeout race, cooperative cancellation, adaptive back-off
// between ticks, snapshot capture, and lifecycle event dispatch.
//
// An engine and its tree are owned by a single logical caller; Tick
// rejects reentrant calls with ErrAlreadyRunning.
type Engine struct {
	root   Node
	treeID string

	bus      *emit.Bus
	metrics  *Metrics
	store    store.SnapshotStore
	registry *Registry
	delay    *TickDelayStrategy

	autoReset        bool
	tickTimeout      time.Duration
	maxTicks         int
	captureSnapshots bool

	inFlight atomic.Bool

	mu           sync.Mutex
	cancelTick   context.CancelFunc
	opCancel     context.CancelFunc
	tickCount    int
	lastTickTime time.Time
	tc           *TickContext

	// per-tick and per-run observation buffers, fed by the bus.
	obsMu          sync.Mutex
	tickEvents     []emit.Event
	logBuf         []emit.Event
	lastFailedNode string

	snapMu       sync.Mutex
	snapshots    []ExecutionSnapshot
	lastSnapshot map[string]any
}

// Option configures an Engine.
type Option func(*Engine)

// WithTreeID sets the engine's tree identifier used in events, metrics,
// and persisted snapshots. A random UUID is generated when unset.
func WithTreeID(id string) Option {
	return func(e *Engine) { e.treeID = id }
}

// WithAutoReset makes the engine reset a terminal root before the next
// tick (a running root is never reset).
func WithAutoReset(enabled bool) Option {
	return func(e *Engine) { e.autoReset = enabled }
}

// WithTickTimeout races every tick against the given duration; on expiry
// the tick fails with an EngineError (code TICK_TIMEOUT) and the caller
// should Halt before ticking again.
func WithTickTimeout(d time.Duration) Option {
	return func(e *Engine) { e.tickTimeout = d }
}

// WithMaxTicks bounds TickUntilDone (DefaultMaxTicks when unset).
func WithMaxTicks(n int) Option {
	return func(e *Engine) { e.maxTicks = n }
}

// WithSnapshots enables execution-snapshot capture after each tick whose
// blackboard diff is non-empty.
func WithSnapshots(enabled bool) Option {
	return func(e *Engine) { e.captureSnapshots = enabled }
}

// WithEmitter forwards all lifecycle events to the given emitter.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) { e.bus.Forward(em) }
}

// WithMetrics wires Prometheus collectors into the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStore persists captured snapshots to the given store.
func WithStore(s store.SnapshotStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithRegistry resolves SubTree nodes against the given registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithTickDelay overrides the back-off strategy used by TickUntilDone
// (adaptive Auto mode when unset).
func WithTickDelay(s *TickDelayStrategy) Option {
	return func(e *Engine) { e.delay = s }
}

// NewEngine creates an engine around root.
func NewEngine(root Node, opts ...Option) *Engine {
	e := &Engine{
		root:  root,
		bus:   emit.NewBus(),
		delay: NewAutoTickDelay(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.treeID == "" {
		e.treeID = uuid.NewString()
	}
	if e.maxTicks <= 0 {
		e.maxTicks = DefaultMaxTicks
	}

	e.tc = NewTickContext()
	e.tc.Registry = e.registry
	e.tc.Emitter = e.bus

	// Background operations started by async leaves outlive individual
	// ticks; only Halt cancels them.
	opCtx, opCancel := context.WithCancel(context.Background())
	e.tc.OpContext = opCtx
	e.opCancel = opCancel

	// The engine observes its own bus: per-tick event collection for
	// traces, LOG buffering, and last-failing-node tracking.
	e.bus.SubscribeAll(func(ev emit.Event) {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		e.tickEvents = append(e.tickEvents, ev)
		if ev.Type == emit.Log {
			e.logBuf = append(e.logBuf, ev)
		}
		if ev.Type == emit.TickEnd {
			status, _ := ev.Data["status"].(string)
			if status == StatusFailure.String() {
				e.lastFailedNode = ev.NodeID
			}
			e.metrics.RecordNodeTick(ev.NodeType, statusFromString(status))
		}
	})

	return e
}

// Root returns the driven tree root.
func (e *Engine) Root() Node { return e.root }

// TreeID returns the engine's tree identifier.
func (e *Engine) TreeID() string { return e.treeID }

// Blackboard returns the engine's root blackboard scope.
func (e *Engine) Blackboard() *Blackboard { return e.tc.Blackboard }

// Bus returns the engine's event bus for subscriber registration.
func (e *Engine) Bus() *emit.Bus { return e.bus }

// TickCount returns the number of ticks started so far.
func (e *Engine) TickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// Tick runs one tick of the root.
//
// It fails synchronously with ErrAlreadyRunning while another tick is in
// flight. With auto-reset configured, a terminal root is reset before the
// tick. The returned error is non-nil for engine-level failures (timeout,
// reentrancy) and fatal node errors; a plain StatusFailure from the tree
// arrives with a nil error.
func (e *Engine) Tick(ctx context.Context) (Status, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return e.root.Status(), ErrAlreadyRunning
	}
	defer e.inFlight.Store(false)
	return e.tickLocked(ctx, e.tc)
}

func (e *Engine) tickLocked(ctx context.Context, tc *TickContext) (Status, error) {
	if e.autoReset && e.root.Status().IsTerminal() {
		e.root.Reset()
		e.emitLifecycle(emit.Reset)
	}

	tickCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancelTick = cancel
	e.tickCount++
	tickNumber := e.tickCount
	now := time.Now()
	if !e.lastTickTime.IsZero() {
		tc.DeltaTime = now.Sub(e.lastTickTime)
	}
	e.lastTickTime = now
	tc.Timestamp = now
	e.mu.Unlock()

	e.obsMu.Lock()
	e.tickEvents = nil
	e.obsMu.Unlock()

	start := time.Now()
	status, err := e.runTick(tickCtx, tc)
	elapsed := time.Since(start)

	e.metrics.RecordTick(e.treeID, status, elapsed)
	e.metrics.SetRunningOperations(e.tc.Ops.Len())

	if err == nil && e.captureSnapshots {
		e.captureSnapshot(ctx, tickNumber, status)
	}
	return status, err
}

// runTick executes the root tick, racing it against the per-tick timeout
// when one is configured.
func (e *Engine) runTick(ctx context.Context, tc *TickContext) (Status, error) {
	if e.tickTimeout <= 0 {
		return e.root.Tick(ctx, tc)
	}

	type tickResult struct {
		status Status
		err    error
	}
	done := make(chan tickResult, 1)
	go func() {
		st, err := e.root.Tick(ctx, tc)
		done <- tickResult{st, err}
	}()

	timer := time.NewTimer(e.tickTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.status, res.err
	case <-timer.C:
		// The tree is in an unknown state; the caller should Halt
		// before ticking again.
		return StatusFailure, &EngineError{
			Code:    CodeTickTimeout,
			Message: fmt.Sprintf("tick exceeded timeout of %v", e.tickTimeout),
		}
	}
}

// Halt stops the engine's in-flight work: it signals the cancellation
// token (failing any pending CheckCancellation), halts the root, clears
// the running-operation table, and releases the single-activation lock.
func (e *Engine) Halt() {
	e.cancelInFlight()
	e.root.Halt()
	e.emitLifecycle(emit.Halt)
	e.tc.Ops.Clear()
	e.metrics.SetRunningOperations(0)
	e.inFlight.Store(false)
}

// cancelInFlight signals the current tick's context and the long-lived
// operation context, then re-arms the latter for subsequent ticks.
func (e *Engine) cancelInFlight() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelTick != nil {
		e.cancelTick()
	}
	if e.opCancel != nil {
		e.opCancel()
	}
	opCtx, opCancel := context.WithCancel(context.Background())
	e.tc.OpContext = opCtx
	e.opCancel = opCancel
}

// Reset returns the tree and the engine's delay strategy to their initial
// state. The blackboard is left intact.
func (e *Engine) Reset() {
	e.root.Reset()
	e.emitLifecycle(emit.Reset)
	e.delay.Reset()
}

// RunOption configures one TickUntilDone call.
type RunOption func(*runConfig)

type runConfig struct {
	resumeFrom string
}

// WithResumeFrom seeds the first tick of the run with a resume point:
// leaves before nodeID report StatusSkipped.
func WithResumeFrom(nodeID string) RunOption {
	return func(c *runConfig) { c.resumeFrom = nodeID }
}

// Result is what a completed TickUntilDone call returns.
type Result struct {
	// Status is the root's final status.
	Status Status

	// Ticks is the number of ticks the run used.
	Ticks int

	// Logs is a copy of the LOG events emitted during the run.
	Logs []emit.Event

	// LastFailedNodeID identifies the most recent node that completed
	// with failure during the run, empty when none did.
	LastFailedNodeID string

	// Snapshots are the execution snapshots captured during the run
	// (snapshot capture must be enabled).
	Snapshots []ExecutionSnapshot
}

// TickUntilDone ticks the root until a non-running status or the
// configured maximum number of ticks, applying the back-off strategy
// between ticks. A resume point, when given, is injected only into the
// first tick's context.
//
// On a fatal error or engine failure the run stops and the error is
// returned alongside the partial result. On cancellation the tree is
// halted before returning.
func (e *Engine) TickUntilDone(ctx context.Context, opts ...RunOption) (Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return Result{Status: e.root.Status()}, ErrAlreadyRunning
	}
	defer e.inFlight.Store(false)

	e.obsMu.Lock()
	e.logBuf = nil
	e.lastFailedNode = ""
	e.obsMu.Unlock()

	var (
		status Status
		err    error
		ticks  int
	)
	for {
		tc := e.tc
		if ticks == 0 && cfg.resumeFrom != "" {
			tc = e.tc.WithResume(cfg.resumeFrom)
		}

		status, err = e.tickLocked(ctx, tc)
		ticks++

		if err != nil {
			var cancelled *CancellationError
			if errors.As(err, &cancelled) {
				e.haltLocked()
			}
			break
		}
		if status != StatusRunning {
			e.delay.Reset()
			break
		}
		if ticks >= e.maxTicks {
			err = &EngineError{
				Code:    CodeMaxTicksExceeded,
				Message: fmt.Sprintf("no terminal status after %d ticks", ticks),
			}
			break
		}

		if d := e.delay.Next(); d > 0 {
			if sleepErr := sleepCtx(ctx, d); sleepErr != nil {
				err = &CancellationError{Cause: sleepErr}
				e.haltLocked()
				break
			}
		}
	}

	e.obsMu.Lock()
	logs := make([]emit.Event, len(e.logBuf))
	copy(logs, e.logBuf)
	lastFailed := e.lastFailedNode
	e.obsMu.Unlock()

	return Result{
		Status:           status,
		Ticks:            ticks,
		Logs:             logs,
		LastFailedNodeID: lastFailed,
		Snapshots:        e.Snapshots(),
	}, err
}

// haltLocked is Halt without releasing the single-activation lock; used
// from inside TickUntilDone, which still holds it.
func (e *Engine) haltLocked() {
	e.cancelInFlight()
	e.root.Halt()
	e.emitLifecycle(emit.Halt)
	e.tc.Ops.Clear()
	e.metrics.SetRunningOperations(0)
}

// ResumeContext returns a context seed pre-populated to resume execution
// from nodeID on the next manual Tick sequence.
func (e *Engine) ResumeContext(nodeID string) *TickContext {
	return e.tc.WithResume(nodeID)
}

// Snapshots returns a copy of the captured execution snapshots.
func (e *Engine) Snapshots() []ExecutionSnapshot {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	out := make([]ExecutionSnapshot, len(e.snapshots))
	copy(out, e.snapshots)
	return out
}

// captureSnapshot records an execution snapshot when the blackboard
// changed since the previous one.
func (e *Engine) captureSnapshot(ctx context.Context, tickNumber int, status Status) {
	current := e.tc.Blackboard.Snapshot()

	e.snapMu.Lock()
	prev := e.lastSnapshot
	if prev == nil {
		prev = map[string]any{}
	}
	diff := DiffSnapshots(prev, current)
	if diff.Empty() {
		e.snapMu.Unlock()
		return
	}

	e.obsMu.Lock()
	trace := traceFromEvents(e.tickEvents)
	e.obsMu.Unlock()

	snap := ExecutionSnapshot{
		ID:             uuid.NewString(),
		TickNumber:     tickNumber,
		Timestamp:      time.Now(),
		RootNodeID:     e.root.ID(),
		RootStatus:     status.String(),
		Blackboard:     current,
		BlackboardDiff: diff,
		ExecutionTrace: trace,
	}
	e.snapshots = append(e.snapshots, snap)
	e.lastSnapshot = current
	e.snapMu.Unlock()

	e.metrics.RecordSnapshot()

	if e.store != nil {
		rec := store.SnapshotRecord{
			ID:         snap.ID,
			TreeID:     e.treeID,
			TickNumber: snap.TickNumber,
			Timestamp:  snap.Timestamp,
			RootStatus: snap.RootStatus,
			Snapshot:   snap,
		}
		if err := e.store.SaveSnapshot(ctx, rec); err != nil {
			e.bus.Emit(emit.Event{
				Type:      emit.Log,
				NodeID:    e.root.ID(),
				NodeType:  e.root.Type(),
				Timestamp: time.Now(),
				Data:      map[string]any{"level": "error", "message": "snapshot persist failed: " + err.Error()},
			})
		}
	}
}

func (e *Engine) emitLifecycle(t emit.EventType) {
	e.bus.Emit(emit.Event{
		Type:      t,
		NodeID:    e.root.ID(),
		NodeName:  e.root.Name(),
		NodeType:  e.root.Type(),
		Timestamp: time.Now(),
	})
}
