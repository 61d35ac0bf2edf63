package btree

import "context"

// PreconditionEntry is one (condition, optional resolver, required)
// triple evaluated by a Precondition decorator.
type PreconditionEntry struct {
	// Condition is ticked first. Running suspends the decorator.
	Condition Node

	// Resolver, when set, is ticked after the condition fails; the
	// condition is then reset and re-checked.
	Resolver Node

	// Required controls whether a condition that still fails after
	// resolution blocks the child. A failing optional precondition is
	// passed over without being recorded.
	Required bool
}

// Precondition gates its child behind an ordered list of precondition
// entries.
//
// On each activation the entries are evaluated in order: a running
// condition (or resolver) suspends; a failing condition with a resolver
// runs the resolver and re-checks once; a condition that still fails and
// is required fails the decorator; a non-required one is passed over.
// Once all entries pass, the child is ticked. While the child is running
// the preconditions are not re-evaluated — the same invariant Conditional
// holds for its condition.
type Precondition struct {
	baseNode
	child   Node
	entries []PreconditionEntry

	// cursor/phase track evaluation across running ticks.
	cursor    int
	resolving bool
	rechecked bool
	inChild   bool
}

// precondition phases are encoded in the three booleans above rather than
// an enum: only four states are reachable.

// NewPrecondition creates the decorator around child with the given
// entries.
func NewPrecondition(id, name string, entries []PreconditionEntry, child Node) *Precondition {
	p := &Precondition{
		baseNode: newBaseNode(id, name, "precondition", false),
		child:    child,
		entries:  entries,
	}
	attach(p, child)
	for _, e := range entries {
		attach(p, e.Condition)
		if e.Resolver != nil {
			attach(p, e.Resolver)
		}
	}
	return p
}

// Children implements Node: the entry conditions/resolvers in order, then
// the child.
func (p *Precondition) Children() []Node {
	out := make([]Node, 0, len(p.entries)*2+1)
	for _, e := range p.entries {
		out = append(out, e.Condition)
		if e.Resolver != nil {
			out = append(out, e.Resolver)
		}
	}
	return append(out, p.child)
}

// Tick implements Node.
func (p *Precondition) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return p.tick(ctx, tc, p.executeTick)
}

func (p *Precondition) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	for !p.inChild && p.cursor < len(p.entries) {
		if err := CheckCancellation(ctx); err != nil {
			p.endRun()
			return StatusFailure, err
		}
		entry := p.entries[p.cursor]

		if p.resolving {
			st, err := entry.Resolver.Tick(ctx, tc)
			if err != nil {
				p.endRun()
				return StatusFailure, err
			}
			if st == StatusRunning {
				return StatusRunning, nil
			}
			p.resolving = false
			p.rechecked = true
			entry.Condition.Reset()
		}

		st, err := entry.Condition.Tick(ctx, tc)
		if err != nil {
			p.endRun()
			return StatusFailure, err
		}
		switch st {
		case StatusRunning:
			return StatusRunning, nil
		case StatusSuccess, StatusSkipped:
			p.advance()
		case StatusFailure:
			if entry.Resolver != nil && !p.rechecked {
				p.resolving = true
				continue
			}
			if entry.Required {
				p.endRun()
				return StatusFailure, nil
			}
			p.advance()
		}
	}
	p.inChild = true

	st, err := p.child.Tick(ctx, tc)
	if err != nil {
		p.endRun()
		return StatusFailure, err
	}
	if st == StatusRunning {
		return StatusRunning, nil
	}
	p.endRun()
	return st, nil
}

func (p *Precondition) advance() {
	p.cursor++
	p.resolving = false
	p.rechecked = false
}

func (p *Precondition) endRun() {
	p.cursor = 0
	p.resolving = false
	p.rechecked = false
	p.inChild = false
}

// Halt implements Node.
func (p *Precondition) Halt() {
	if p.status != StatusRunning {
		return
	}
	haltChildren(p.Children())
	p.endRun()
	p.resetBase()
}

// Reset implements Node.
func (p *Precondition) Reset() {
	resetChildren(p.Children())
	p.endRun()
	p.resetBase()
}

// Clone implements Node.
func (p *Precondition) Clone() Node {
	cp := &Precondition{baseNode: p.cloneBase()}
	cp.child = p.child.Clone()
	cp.child.setParent(cp)
	cp.entries = make([]PreconditionEntry, len(p.entries))
	for i, e := range p.entries {
		ce := PreconditionEntry{Required: e.Required}
		ce.Condition = e.Condition.Clone()
		ce.Condition.setParent(cp)
		if e.Resolver != nil {
			ce.Resolver = e.Resolver.Clone()
			ce.Resolver.setParent(cp)
		}
		cp.entries[i] = ce
	}
	return cp
}
