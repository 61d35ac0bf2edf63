package btree

import (
	"fmt"
	"time"
)

// NodeSpec is the language-neutral description of one tree node: a type
// tag, an id, an optional display name, a free-form configuration map,
// and an ordered list of child specs. External loaders (YAML/JSON)
// produce NodeSpec trees and hand them to a Builder.
type NodeSpec struct {
	// Type is the node type tag (see the buildable types in schema.go).
	Type string `json:"type"`

	// ID is the node's stable identifier; must be non-empty.
	ID string `json:"id"`

	// Name is the optional display name.
	Name string `json:"name,omitempty"`

	// Config is the node's free-form configuration.
	Config map[string]any `json:"config,omitempty"`

	// Children are the node's child specs in execution order.
	Children []NodeSpec `json:"children,omitempty"`
}

// Builder turns NodeSpec trees into executable nodes.
//
// Leaf specs reference handler functions by name; register them before
// building. Validation happens at build time: a spec violating its type's
// schema (child arity, config fields) fails with a ConfigurationError
// before anything is ticked.
//
// Precondition decorators carry node-valued configuration (condition /
// resolver / required triples) and are assembled programmatically via
// NewPrecondition rather than through specs.
type Builder struct {
	actions    map[string]TickFunc
	conditions map[string]ConditionFunc
	asyncs     map[string]StartFunc
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		actions:    make(map[string]TickFunc),
		conditions: make(map[string]ConditionFunc),
		asyncs:     make(map[string]StartFunc),
	}
}

// RegisterAction makes fn buildable as an "action" leaf under the given
// handler name.
func (b *Builder) RegisterAction(name string, fn TickFunc) *Builder {
	b.actions[name] = fn
	return b
}

// RegisterCondition makes fn buildable as a "condition" leaf.
func (b *Builder) RegisterCondition(name string, fn ConditionFunc) *Builder {
	b.conditions[name] = fn
	return b
}

// RegisterAsyncAction makes fn buildable as an "async-action" leaf.
func (b *Builder) RegisterAsyncAction(name string, fn StartFunc) *Builder {
	b.asyncs[name] = fn
	return b
}

// Build validates the spec tree and constructs its nodes. Duplicate node
// ids anywhere in the tree are a configuration error.
func (b *Builder) Build(spec NodeSpec) (Node, error) {
	seen := make(map[string]bool)
	return b.build(spec, seen)
}

func (b *Builder) build(spec NodeSpec, seen map[string]bool) (Node, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if seen[spec.ID] {
		return nil, &ConfigurationError{
			NodeType: spec.Type, NodeID: spec.ID, Field: "id",
			Hint: fmt.Sprintf("duplicate node id %q", spec.ID),
		}
	}
	seen[spec.ID] = true

	children := make([]Node, len(spec.Children))
	for i, cs := range spec.Children {
		child, err := b.build(cs, seen)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	node, err := b.construct(spec, children)
	if err != nil {
		return nil, err
	}
	if ports := portsFromConfig(spec.Config); ports != nil {
		if ps, ok := node.(interface{ SetPorts(map[string]string) }); ok {
			ps.SetPorts(ports)
		}
	}
	return node, nil
}

func (b *Builder) construct(spec NodeSpec, children []Node) (Node, error) {
	switch spec.Type {
	case "sequence":
		return NewSequence(spec.ID, spec.Name, children...), nil
	case "selector":
		return NewSelector(spec.ID, spec.Name, children...), nil
	case "memory-sequence":
		return NewMemorySequence(spec.ID, spec.Name, children...), nil
	case "reactive-sequence":
		return NewReactiveSequence(spec.ID, spec.Name, children...), nil
	case "parallel":
		strategy, _ := spec.Config["strategy"].(string)
		return NewParallel(spec.ID, spec.Name, ParallelStrategy(strategy), children...), nil
	case "conditional":
		var elseNode Node
		if len(children) == 3 {
			elseNode = children[2]
		}
		return NewConditional(spec.ID, spec.Name, children[0], children[1], elseNode), nil
	case "while":
		maxIters := 0
		if _, ok := spec.Config["max_iterations"]; ok {
			maxIters, _ = intField(spec, "max_iterations")
		}
		return NewWhile(spec.ID, spec.Name, children[0], children[1], maxIters), nil
	case "foreach":
		collection, _ := spec.Config["collection"].(string)
		item, _ := spec.Config["item"].(string)
		return NewForEach(spec.ID, spec.Name, collection, item, children[0]), nil
	case "recovery":
		var catchNode, finallyNode Node
		switch len(children) {
		case 2:
			// Two children default to try/catch; use NewRecoveryFinally
			// programmatically for try/finally.
			catchNode = children[1]
		case 3:
			catchNode = children[1]
			finallyNode = children[2]
		}
		return NewRecovery(spec.ID, spec.Name, children[0], catchNode, finallyNode), nil
	case "subtree":
		treeID, _ := spec.Config["tree_id"].(string)
		return NewSubTree(spec.ID, spec.Name, treeID), nil
	case "invert":
		return NewInvert(spec.ID, spec.Name, children[0]), nil
	case "force-success":
		return NewForceSuccess(spec.ID, spec.Name, children[0]), nil
	case "force-failure":
		return NewForceFailure(spec.ID, spec.Name, children[0]), nil
	case "run-once":
		return NewRunOnce(spec.ID, spec.Name, children[0]), nil
	case "keep-running-until-failure":
		return NewKeepRunningUntilFailure(spec.ID, spec.Name, children[0]), nil
	case "soft-assert":
		return NewSoftAssert(spec.ID, spec.Name, children[0]), nil
	case "repeat":
		cycles, _ := intField(spec, "num_cycles")
		return NewRepeat(spec.ID, spec.Name, cycles, children[0]), nil
	case "timeout":
		ms, _ := intField(spec, "timeout_ms")
		return NewTimeout(spec.ID, spec.Name, time.Duration(ms)*time.Millisecond, children[0]), nil
	case "delay":
		ms, _ := intField(spec, "delay_ms")
		return NewDelay(spec.ID, spec.Name, time.Duration(ms)*time.Millisecond, children[0]), nil
	case "action":
		handler, _ := spec.Config["handler"].(string)
		fn, ok := b.actions[handler]
		if !ok {
			return nil, configErr(spec, "handler", fmt.Sprintf("no action registered as %q", handler))
		}
		return NewAction(spec.ID, spec.Name, fn), nil
	case "condition":
		handler, _ := spec.Config["handler"].(string)
		fn, ok := b.conditions[handler]
		if !ok {
			return nil, configErr(spec, "handler", fmt.Sprintf("no condition registered as %q", handler))
		}
		return NewCondition(spec.ID, spec.Name, fn), nil
	case "async-action":
		handler, _ := spec.Config["handler"].(string)
		fn, ok := b.asyncs[handler]
		if !ok {
			return nil, configErr(spec, "handler", fmt.Sprintf("no async action registered as %q", handler))
		}
		return NewAsyncAction(spec.ID, spec.Name, fn), nil
	default:
		return nil, &ConfigurationError{
			NodeType: spec.Type, NodeID: spec.ID, Field: "type",
			Hint: fmt.Sprintf("unknown node type %q", spec.Type),
		}
	}
}

func portsFromConfig(config map[string]any) map[string]string {
	raw, ok := config["ports"]
	if !ok {
		return nil
	}
	switch m := raw.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}
