package btree

import (
	"context"
	"sync"
)

// ParallelStrategy selects how Parallel folds child results.
type ParallelStrategy string

const (
	// ParallelStrict requires every child to succeed; any failure fails
	// the composite. The default.
	ParallelStrict ParallelStrategy = "strict"

	// ParallelAny succeeds when at least one child terminated in success;
	// it fails only when every child terminated in failure.
	ParallelAny ParallelStrategy = "any"
)

// Parallel ticks all children concurrently within one engine tick.
//
// This is intra-tick concurrency over the children's I/O, not
// multi-threaded tree mutation: each child completes its own tick
// synchronously in its goroutine, and long-running work is expressed as a
// child returning StatusRunning so its siblings can progress on subsequent
// ticks.
//
// Children that reached a terminal status retain it across ticks and are
// not re-ticked; only still-running children are. Both strategies wait for
// every child to reach a terminal status before the composite itself
// completes. Non-fatal errors raised by a child are that child's failure
// and never disturb sibling execution; fatal errors surface after all
// children of the tick have joined. On completion all child state is
// reset.
type Parallel struct {
	baseNode
	children []Node
	strategy ParallelStrategy
	results  []Status
}

// NewParallel creates a parallel composite with the given strategy
// (ParallelStrict when empty).
func NewParallel(id, name string, strategy ParallelStrategy, children ...Node) *Parallel {
	if strategy == "" {
		strategy = ParallelStrict
	}
	p := &Parallel{
		baseNode: newBaseNode(id, name, "parallel", false),
		children: children,
		strategy: strategy,
		results:  make([]Status, len(children)),
	}
	for _, c := range children {
		attach(p, c)
	}
	return p
}

// Children implements Node.
func (p *Parallel) Children() []Node { return p.children }

// Strategy returns the configured fold strategy.
func (p *Parallel) Strategy() ParallelStrategy { return p.strategy }

// Tick implements Node.
func (p *Parallel) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return p.tick(ctx, tc, p.executeTick)
}

func (p *Parallel) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	if len(p.children) == 0 {
		return StatusSuccess, nil
	}
	if err := CheckCancellation(ctx); err != nil {
		return StatusFailure, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	for i, child := range p.children {
		if p.results[i].IsTerminal() {
			continue
		}
		wg.Add(1)
		go func(i int, child Node) {
			defer wg.Done()
			st, err := child.Tick(ctx, tc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if IsFatal(err) && fatalErr == nil {
					fatalErr = err
				}
				p.results[i] = StatusFailure
				return
			}
			if st == StatusSkipped {
				// Neutral: a skipped child never blocks completion.
				p.results[i] = StatusSuccess
				return
			}
			p.results[i] = st
		}(i, child)
	}
	wg.Wait()

	if fatalErr != nil {
		p.resetRun()
		return StatusFailure, fatalErr
	}

	successes, failures := 0, 0
	for _, r := range p.results {
		switch r {
		case StatusSuccess:
			successes++
		case StatusFailure:
			failures++
		default:
			return StatusRunning, nil
		}
	}

	p.resetRun()
	switch p.strategy {
	case ParallelAny:
		if successes > 0 {
			return StatusSuccess, nil
		}
		return StatusFailure, nil
	default:
		if failures > 0 {
			return StatusFailure, nil
		}
		return StatusSuccess, nil
	}
}

// resetRun clears latched results and child cursors after completion.
func (p *Parallel) resetRun() {
	p.results = make([]Status, len(p.children))
	resetChildren(p.children)
}

// Halt implements Node.
func (p *Parallel) Halt() {
	if p.status != StatusRunning {
		return
	}
	haltChildren(p.children)
	p.results = make([]Status, len(p.children))
	p.resetBase()
}

// Reset implements Node.
func (p *Parallel) Reset() {
	resetChildren(p.children)
	p.results = make([]Status, len(p.children))
	p.resetBase()
}

// Clone implements Node.
func (p *Parallel) Clone() Node {
	cp := &Parallel{baseNode: p.cloneBase(), strategy: p.strategy}
	cp.children = cloneChildren(cp, p.children)
	cp.results = make([]Status, len(cp.children))
	return cp
}
