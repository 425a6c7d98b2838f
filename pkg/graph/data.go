package graph

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

// PrimitiveData is a leaf solid.
type PrimitiveData struct {
	Descriptor primitive.Descriptor `json:"descriptor"`
}

func (PrimitiveData) nodeData() {}

// TransformData places its single child.
type TransformData struct {
	Placement placement.Placement `json:"placement"`
}

func (TransformData) nodeData() {}

// BooleanData carries a union or difference. Child order is fold order.
type BooleanData struct{}

func (BooleanData) nodeData() {}

// RailData is a run of T-rail segments along Y.
type RailData struct {
	Profile     joint.RailProfile `json:"profile"`
	Layout      joint.Layout      `json:"layout"`
	Orientation joint.Orientation `json:"orientation"`
	At          r3.Vec            `json:"at"`
}

func (RailData) nodeData() {}

// SlotData is a run of T-slot cutters matched to a rail profile.
type SlotData struct {
	Rail        joint.RailProfile `json:"rail"`
	Clearance   float64           `json:"clearance"`
	Layout      joint.Layout      `json:"layout"`
	Orientation joint.Orientation `json:"orientation"`
	At          r3.Vec            `json:"at"`
}

func (SlotData) nodeData() {}

// Slot derives the slot profile from the rail and clearance.
func (d SlotData) Slot() joint.SlotProfile {
	return joint.SlotFor(d.Rail, d.Clearance)
}

// PartData marks a named output; its single child is the part body.
type PartData struct {
	Description string `json:"description,omitempty"`
}

func (PartData) nodeData() {}
