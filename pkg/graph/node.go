package graph

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-addressed node identifier: the hex SHA-256 of the
// node's path in the script.
type NodeID string

// ZeroID is the empty NodeID.
const ZeroID NodeID = ""

// NewNodeID derives the ID for a node path such as "defpart/tray".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 6 bytes of the ID in hex, for messages.
func (id NodeID) Short() string {
	if len(id) < 12 {
		return string(id)
	}
	return string(id[:12])
}

// NodeKind enumerates the types of nodes in the design graph.
type NodeKind int

const (
	NodePrimitive  NodeKind = iota // box, cylinder, cone, extrusion
	NodeTransform                  // placement of one child
	NodeUnion                      // union of all children
	NodeDifference                 // first child minus the rest
	NodeRail                       // T-rail segments
	NodeSlot                       // T-slot cutters
	NodePart                       // named, validated output
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeTransform:
		return "transform"
	case NodeUnion:
		return "union"
	case NodeDifference:
		return "difference"
	case NodeRail:
		return "rail"
	case NodeSlot:
		return "slot"
	case NodePart:
		return "part"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the design graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Line     int      `json:"line,omitempty"` // source line, 0 if unknown
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
