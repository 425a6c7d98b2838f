package parts

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/kernel"
)

// Clip builds a base strip carrying evenly spaced short rail segments,
// centred along its length.
func Clip(cfg Config, c *csg.Compositor) (csg.Result, error) {
	k, j := cfg.Clip, cfg.Joint
	if err := k.Validate(); err != nil {
		return csg.Result{}, err
	}
	if err := j.Validate(); err != nil {
		return csg.Result{}, err
	}
	if k.Width < j.NeckWidth {
		return csg.Result{}, fmt.Errorf("%w: clip strip %v narrower than the rail neck %v", kernel.ErrInvalidParameter, k.Width, j.NeckWidth)
	}
	b := newBuilder("clip", c)

	base, err := b.box("base", k.Width, k.Length, k.Thickness, -k.Width/2, 0, 0)
	if err != nil {
		return csg.Result{}, err
	}
	layout := joint.Segmented(0, k.SegmentLength, k.Segments, k.Spacing)
	_, hi := layout.Extent()
	layout.Start = (k.Length - hi) / 2

	rails, err := joint.Rails(j.Rail(), layout, joint.Upright, r3.Vec{Z: k.Thickness})
	if err != nil {
		return csg.Result{}, err
	}
	return c.Union("clip.rail", append([]*kernel.Solid{base}, rails...)...)
}
