package btree

import "context"

// AssertFailure records one converted failure observed by a SoftAssert.
type AssertFailure struct {
	// NodeID is the asserting decorator's id.
	NodeID string

	// ChildID is the failing child's id.
	ChildID string

	// Message is the child's last error message, empty for a plain
	// StatusFailure.
	Message string
}

// SoftAssert converts its child's failure to success while recording it,
// letting a surrounding sequence continue past non-critical checks. The
// recorded failures are available via Failures/HasFailures and are cleared
// on Reset. Running and success pass through; fatal errors still
// propagate.
type SoftAssert struct {
	decorator
	failures []AssertFailure
}

// NewSoftAssert creates the decorator around child.
func NewSoftAssert(id, name string, child Node) *SoftAssert {
	s := &SoftAssert{decorator: newDecorator(id, name, "soft-assert", child)}
	attach(s, child)
	return s
}

// Tick implements Node.
func (s *SoftAssert) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return s.tick(ctx, tc, s.executeTick)
}

func (s *SoftAssert) executeTick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := s.child.Tick(ctx, tc)
	if err != nil {
		// Fatal kinds propagate; anything else was already folded into
		// the child's StatusFailure by the child's own envelope.
		return StatusFailure, err
	}
	if st == StatusFailure {
		msg := ""
		if childErr := s.child.LastError(); childErr != nil {
			msg = childErr.Error()
		}
		s.failures = append(s.failures, AssertFailure{
			NodeID:  s.id,
			ChildID: s.child.ID(),
			Message: msg,
		})
		return StatusSuccess, nil
	}
	return st, nil
}

// Failures returns a copy of the recorded failures in occurrence order.
func (s *SoftAssert) Failures() []AssertFailure {
	out := make([]AssertFailure, len(s.failures))
	copy(out, s.failures)
	return out
}

// HasFailures reports whether any failure has been recorded since the
// last Reset.
func (s *SoftAssert) HasFailures() bool {
	return len(s.failures) > 0
}

// Halt implements Node. Recorded failures survive halting.
func (s *SoftAssert) Halt() {
	if s.status != StatusRunning {
		return
	}
	s.haltChild()
	s.resetBase()
}

// Reset implements Node. Clears the recorded failures.
func (s *SoftAssert) Reset() {
	s.child.Reset()
	s.failures = nil
	s.resetBase()
}

// Clone implements Node. The clone starts with no recorded failures.
func (s *SoftAssert) Clone() Node {
	cp := &SoftAssert{decorator: decorator{baseNode: s.cloneBase()}}
	cp.child = s.child.Clone()
	cp.child.setParent(cp)
	return cp
}
