package parts

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/chamfer"
	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
)

// Tray builds the enclosed cable tray: a trough with closed end walls, a
// cable notch open at the top of each end wall, optional exterior ribs, and
// a chamfered T-rail running the full length of each side wall.
func Tray(cfg Config, c *csg.Compositor) (csg.Result, error) {
	t, j := cfg.Tray, cfg.Joint
	if err := t.Validate(); err != nil {
		return csg.Result{}, err
	}
	if err := j.Validate(); err != nil {
		return csg.Result{}, err
	}
	b := newBuilder("tray", c)
	height := t.Depth + t.FloorThickness

	outer, err := b.box("outer", t.Width, t.Length, height, 0, 0, 0)
	if err != nil {
		return csg.Result{}, err
	}
	cavity, err := b.box("cavity", t.Width-2*t.WallThickness, t.Length-2*t.EndWall, t.Depth+1,
		t.WallThickness, t.EndWall, t.FloorThickness)
	if err != nil {
		return csg.Result{}, err
	}

	var st steps
	st.cut("tray.cavity", cavity)

	if t.NotchWidth > 0 && t.NotchHeight > 0 {
		x := (t.Width - t.NotchWidth) / 2
		for _, n := range []struct {
			label string
			y     float64
		}{
			{"notch-front", -1},
			{"notch-back", t.Length - t.EndWall - 1},
		} {
			s, err := b.box(n.label, t.NotchWidth, t.EndWall+2, t.NotchHeight+1, x, n.y, height-t.NotchHeight)
			if err != nil {
				return csg.Result{}, err
			}
			st.cut("tray."+n.label, s)
		}
	}

	if t.Ribs {
		ribs, err := trayRibs(b, t, height)
		if err != nil {
			return csg.Result{}, err
		}
		for i, r := range ribs {
			st.add(fmt.Sprintf("tray.rib[%d]", i), r)
		}
	}

	head := chamfer.Head{
		NeckWidth:     j.NeckWidth,
		NeckHeight:    j.NeckHeight,
		HeadWidth:     j.HeadWidth,
		ChamferHeight: j.ChamferHeight,
		HeadFlat:      j.HeadFlat,
		Length:        t.Length,
	}
	railAt := func(label string, x float64) func() (*kernel.Solid, error) {
		return func() (*kernel.Solid, error) {
			res, err := head.Build(c, label, r3.Vec{X: x, Z: height})
			if err != nil {
				return nil, err
			}
			return res.Solid, nil
		}
	}
	rails, err := csg.Branches(
		railAt("tray.rail-left", t.WallThickness/2),
		railAt("tray.rail-right", t.Width-t.WallThickness/2),
	)
	if err != nil {
		return csg.Result{}, err
	}
	st.add("tray.rail-left", rails[0])
	st.add("tray.rail-right", rails[1])

	return c.Compose(outer, st)
}

// trayRibs returns horizontal ribs along both side walls and longitudinal
// ribs under the floor.
func trayRibs(b builder, t TrayConfig, height float64) ([]*kernel.Solid, error) {
	var out []*kernel.Solid
	for i := 0; i < int(height/t.RibSpacing); i++ {
		z := float64(i)*t.RibSpacing + t.RibSpacing/2
		if z+t.RibWidth/2 > height {
			continue
		}
		for _, x := range []float64{-t.RibDepth, t.Width} {
			r, err := b.box("rib-side", t.RibDepth, t.Length, t.RibWidth, x, 0, z-t.RibWidth/2)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	for i := 0; i < int(t.Width/t.RibSpacing); i++ {
		x := float64(i)*t.RibSpacing + t.RibSpacing/2
		if x+t.RibWidth/2 > t.Width {
			continue
		}
		r, err := b.box("rib-floor", t.RibWidth, t.Length, t.RibDepth, x-t.RibWidth/2, 0, -t.RibDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
