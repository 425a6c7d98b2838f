package graph

import (
	"fmt"

	"github.com/chazu/trayforge/pkg/joint"
)

// MinPrintableClearance is the smallest slot clearance that still slides
// on a typical FDM print. Smaller clearances are accepted with a warning.
const MinPrintableClearance = 0.1

// ValidationSeverity indicates whether a validation finding blocks building
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks building
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether the graph may be built.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural checks on the design graph and returns
// every finding. An empty slice means the graph is valid. This function is
// read-only and never mutates the graph.
func Validate(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateArity(g)...)
	return errs
}

// ValidateAll runs the structural and parameter tiers and returns a
// ValidationResult with separated errors and warnings.
func ValidateAll(g *DesignGraph) ValidationResult {
	var result ValidationResult
	all := append(Validate(g), validateParameters(g)...)
	for _, e := range all {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				NodeID:  e.NodeID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// If we encounter a gray node during traversal, we have found a cycle.
func validateDAG(g *DesignGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g.Nodes {
		if color[id] == white {
			if visit(id) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}
	return errs
}

// validateReferences checks that every child ID points to a node that
// exists in g.Nodes.
func validateReferences(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, node := range g.Nodes {
		for _, childID := range node.Children {
			if _, ok := g.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that the NameIndex is injective (no two nodes share the
// same name) and that every entry in NameIndex points to an existing node.
func validateNames(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for name, id := range g.NameIndex {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range g.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that every root is an existing part node and warns
// about orphan nodes (nodes unreachable from any root).
func validateRoots(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, rid := range g.Roots {
		n, ok := g.Nodes[rid]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Kind != NodePart {
			errs = append(errs, ValidationError{
				NodeID:   rid,
				Message:  fmt.Sprintf("root is a %s, not a part", n.Kind),
				Severity: SeverityError,
			})
		}
	}

	if len(g.Nodes) == 0 {
		return errs
	}

	// Orphan detection: BFS from all roots through Children edges.
	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(g.Roots))
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; ok && !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	for len(queue) > 0 {
		node := g.Nodes[queue[0]]
		queue = queue[1:]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range g.Nodes {
		if !reachable[id] {
			name := node.Name
			if name == "" {
				name = id.Short()
			}
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any part (orphan)", name),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateArity checks child counts and that each node carries the payload
// its kind requires.
func validateArity(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	fail := func(n *Node, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: n.ID, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	for _, n := range g.Nodes {
		var dataOK bool
		switch n.Kind {
		case NodePrimitive:
			d, ok := n.Data.(PrimitiveData)
			dataOK = ok && d.Descriptor != nil
		case NodeTransform:
			_, dataOK = n.Data.(TransformData)
		case NodeUnion, NodeDifference:
			_, dataOK = n.Data.(BooleanData)
		case NodeRail:
			_, dataOK = n.Data.(RailData)
		case NodeSlot:
			_, dataOK = n.Data.(SlotData)
		case NodePart:
			_, dataOK = n.Data.(PartData)
		default:
			fail(n, SeverityError, "unknown node kind %v", n.Kind)
			continue
		}
		if !dataOK {
			fail(n, SeverityError, "%s node carries %T", n.Kind, n.Data)
		}

		c := len(n.Children)
		switch n.Kind {
		case NodePrimitive, NodeRail, NodeSlot:
			if c != 0 {
				fail(n, SeverityError, "%s node has %d children, want none", n.Kind, c)
			}
		case NodeTransform, NodePart:
			if c != 1 {
				fail(n, SeverityError, "%s node has %d children, want 1", n.Kind, c)
			}
		case NodeUnion:
			switch c {
			case 0:
				fail(n, SeverityError, "union of nothing")
			case 1:
				fail(n, SeverityWarning, "union of a single child")
			}
		case NodeDifference:
			switch c {
			case 0:
				fail(n, SeverityError, "difference without a base")
			case 1:
				fail(n, SeverityWarning, "difference without cutters")
			}
		}

		if n.Kind != NodePart {
			continue
		}
		for _, cid := range n.Children {
			if child := g.Nodes[cid]; child != nil && child.Kind == NodePart {
				fail(n, SeverityError, "part %q nests part %q", n.Name, child.Name)
			}
		}
	}
	return errs
}

// validateParameters checks every leaf's dimensions the way the builders
// will, so a script fails before any boolean runs.
func validateParameters(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	add := func(n *Node, sev ValidationSeverity, msg string) {
		errs = append(errs, ValidationError{NodeID: n.ID, Message: msg, Severity: sev})
	}

	for _, n := range g.Nodes {
		switch d := n.Data.(type) {
		case PrimitiveData:
			if d.Descriptor == nil {
				continue
			}
			if err := d.Descriptor.Validate(); err != nil {
				add(n, SeverityError, err.Error())
			}
		case RailData:
			if err := d.Profile.Validate(); err != nil {
				add(n, SeverityError, err.Error())
			}
			if _, err := d.Layout.Spans(); err != nil {
				add(n, SeverityError, err.Error())
			}
		case SlotData:
			if _, err := joint.Derive(d.Rail, d.Clearance); err != nil {
				add(n, SeverityError, err.Error())
			} else if d.Clearance < MinPrintableClearance {
				add(n, SeverityWarning, fmt.Sprintf("slot clearance %v below %v will likely bind", d.Clearance, MinPrintableClearance))
			}
			if _, err := d.Layout.Spans(); err != nil {
				add(n, SeverityError, err.Error())
			}
		}
	}

	// A part whose body is only cutters produces nothing printable.
	for _, p := range g.Parts() {
		if len(p.Children) != 1 {
			continue
		}
		if body := g.Nodes[p.Children[0]]; body != nil && body.Kind == NodeSlot {
			add(p, SeverityWarning, fmt.Sprintf("part %q is only a slot cutter", p.Name))
		}
	}
	return errs
}
