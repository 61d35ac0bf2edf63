package btree

import (
	"fmt"
	"math"
)

// childRange is the allowed child-count range for a node type.
type childRange struct {
	min int
	max int // -1 = unbounded
}

// nodeSchemas advertises, per buildable node type, the allowed child
// count and the config validator applied at construction time. Invalid
// configuration surfaces as a ConfigurationError naming the node, the
// field path, and a hint — at build time, never at tick time.
var nodeSchemas = map[string]struct {
	children childRange
	validate func(spec NodeSpec) *ConfigurationError
}{
	"sequence":          {children: childRange{0, -1}},
	"selector":          {children: childRange{0, -1}},
	"memory-sequence":   {children: childRange{0, -1}},
	"reactive-sequence": {children: childRange{0, -1}},
	"parallel": {
		children: childRange{0, -1},
		validate: func(spec NodeSpec) *ConfigurationError {
			if raw, ok := spec.Config["strategy"]; ok {
				s, ok := raw.(string)
				if !ok || (s != string(ParallelStrict) && s != string(ParallelAny)) {
					return configErr(spec, "strategy", fmt.Sprintf("want %q or %q, got %v", ParallelStrict, ParallelAny, raw))
				}
			}
			return nil
		},
	},
	"conditional": {children: childRange{2, 3}},
	"while": {
		children: childRange{2, 2},
		validate: func(spec NodeSpec) *ConfigurationError {
			return validateOptionalPositiveInt(spec, "max_iterations")
		},
	},
	"foreach": {
		children: childRange{1, 1},
		validate: func(spec NodeSpec) *ConfigurationError {
			if err := validateRequiredString(spec, "collection"); err != nil {
				return err
			}
			return validateRequiredString(spec, "item")
		},
	},
	"recovery": {children: childRange{1, 3}},
	"subtree": {
		children: childRange{0, 0},
		validate: func(spec NodeSpec) *ConfigurationError {
			return validateRequiredString(spec, "tree_id")
		},
	},
	"invert":                     {children: childRange{1, 1}},
	"force-success":              {children: childRange{1, 1}},
	"force-failure":              {children: childRange{1, 1}},
	"run-once":                   {children: childRange{1, 1}},
	"keep-running-until-failure": {children: childRange{1, 1}},
	"soft-assert":                {children: childRange{1, 1}},
	"repeat": {
		children: childRange{1, 1},
		validate: func(spec NodeSpec) *ConfigurationError {
			if _, ok := spec.Config["num_cycles"]; !ok {
				return configErr(spec, "num_cycles", "required")
			}
			return validateOptionalPositiveInt(spec, "num_cycles")
		},
	},
	"timeout": {
		children: childRange{1, 1},
		validate: func(spec NodeSpec) *ConfigurationError {
			if _, ok := spec.Config["timeout_ms"]; !ok {
				return configErr(spec, "timeout_ms", "required")
			}
			return validateOptionalPositiveInt(spec, "timeout_ms")
		},
	},
	"delay": {
		children: childRange{1, 1},
		validate: func(spec NodeSpec) *ConfigurationError {
			if _, ok := spec.Config["delay_ms"]; !ok {
				return configErr(spec, "delay_ms", "required")
			}
			if _, perr := intField(spec, "delay_ms"); perr != nil {
				return perr
			}
			if v, _ := intField(spec, "delay_ms"); v < 0 {
				return configErr(spec, "delay_ms", "must not be negative")
			}
			return nil
		},
	},
	"action": {
		children: childRange{0, 0},
		validate: func(spec NodeSpec) *ConfigurationError {
			return validateRequiredString(spec, "handler")
		},
	},
	"condition": {
		children: childRange{0, 0},
		validate: func(spec NodeSpec) *ConfigurationError {
			return validateRequiredString(spec, "handler")
		},
	},
	"async-action": {
		children: childRange{0, 0},
		validate: func(spec NodeSpec) *ConfigurationError {
			return validateRequiredString(spec, "handler")
		},
	},
}

func configErr(spec NodeSpec, field, hint string) *ConfigurationError {
	return &ConfigurationError{NodeType: spec.Type, NodeID: spec.ID, Field: field, Hint: hint}
}

func validateRequiredString(spec NodeSpec, field string) *ConfigurationError {
	raw, ok := spec.Config[field]
	if !ok {
		return configErr(spec, field, "required")
	}
	if s, ok := raw.(string); !ok || s == "" {
		return configErr(spec, field, fmt.Sprintf("want a non-empty string, got %v", raw))
	}
	return nil
}

func validateOptionalPositiveInt(spec NodeSpec, field string) *ConfigurationError {
	if _, ok := spec.Config[field]; !ok {
		return nil
	}
	v, err := intField(spec, field)
	if err != nil {
		return err
	}
	if v <= 0 {
		return configErr(spec, field, "must be positive")
	}
	return nil
}

// intField reads a config field as an int, accepting the numeric types
// JSON decoding and literal Go maps produce.
func intField(spec NodeSpec, field string) (int, *ConfigurationError) {
	raw, ok := spec.Config[field]
	if !ok {
		return 0, configErr(spec, field, "required")
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, configErr(spec, field, fmt.Sprintf("want an integer, got %v", v))
		}
		return int(v), nil
	default:
		return 0, configErr(spec, field, fmt.Sprintf("want an integer, got %T", raw))
	}
}

// validateSpec checks one spec node against its type schema.
func validateSpec(spec NodeSpec) error {
	if spec.ID == "" {
		return &ConfigurationError{NodeType: spec.Type, NodeID: spec.ID, Field: "id", Hint: "node id must not be empty"}
	}
	schema, ok := nodeSchemas[spec.Type]
	if !ok {
		return &ConfigurationError{NodeType: spec.Type, NodeID: spec.ID, Field: "type", Hint: fmt.Sprintf("unknown node type %q", spec.Type)}
	}
	n := len(spec.Children)
	if n < schema.children.min || (schema.children.max >= 0 && n > schema.children.max) {
		want := fmt.Sprintf("at least %d", schema.children.min)
		if schema.children.max >= 0 {
			if schema.children.min == schema.children.max {
				want = fmt.Sprintf("exactly %d", schema.children.min)
			} else {
				want = fmt.Sprintf("between %d and %d", schema.children.min, schema.children.max)
			}
		}
		return &ConfigurationError{
			NodeType: spec.Type, NodeID: spec.ID, Field: "children",
			Hint: fmt.Sprintf("want %s children, got %d", want, n),
		}
	}
	if schema.validate != nil {
		if err := schema.validate(spec); err != nil {
			return err
		}
	}
	if raw, ok := spec.Config["ports"]; ok {
		if _, ok := raw.(map[string]string); !ok {
			if m, ok := raw.(map[string]any); ok {
				for k, v := range m {
					if _, ok := v.(string); !ok {
						return configErr(spec, "ports."+k, fmt.Sprintf("want a string, got %T", v))
					}
				}
			} else {
				return configErr(spec, "ports", fmt.Sprintf("want a string map, got %T", raw))
			}
		}
	}
	return nil
}
