// Package profile draws the rail and slot cross-sections of a joint pair
// so a clearance can be checked by eye before printing.
package profile

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/chazu/trayforge/pkg/joint"
)

// DefaultSize is the side of the square image.
const DefaultSize = 4 * vg.Inch

var (
	slotColor = color.RGBA{R: 0x9e, G: 0xb8, B: 0xd9, A: 0xff}
	railColor = color.RGBA{R: 0xd9, G: 0x7a, B: 0x3e, A: 0xff}
)

func xys(pts []r2.Vec) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i].X, out[i].Y = p.X, p.Y
	}
	return out
}

// Plot draws the slot section with the rail seated in it. Both share the
// joint's local frame: x across the joint, y up from the rail foot.
func Plot(p joint.Pair) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("rail in slot, clearance %g mm, gap %.3g mm", p.Slot.Clearance, p.Gap())
	pl.X.Label.Text = "x (mm)"
	pl.Y.Label.Text = "z (mm)"

	slot, err := plotter.NewPolygon(xys(p.Slot.Section()))
	if err != nil {
		return nil, fmt.Errorf("slot outline: %w", err)
	}
	slot.Color = slotColor

	rail, err := plotter.NewPolygon(xys(p.Rail.Section()))
	if err != nil {
		return nil, fmt.Errorf("rail outline: %w", err)
	}
	rail.Color = railColor

	pl.Add(plotter.NewGrid(), slot, rail)
	pl.Legend.Add("slot", slot)
	pl.Legend.Add("rail", rail)
	pl.Legend.Top = true

	// Equal axes so angles read true.
	lo, hi := pl.X.Min, pl.X.Max
	if d := pl.Y.Max - pl.Y.Min; d > hi-lo {
		mid := (lo + hi) / 2
		lo, hi = mid-d/2, mid+d/2
	}
	pl.X.Min, pl.X.Max = lo, hi
	pl.Y.Max = pl.Y.Min + (hi - lo)
	return pl, nil
}

// Write renders the pair in format ("png", "svg", "pdf", ...) to w.
func Write(w io.Writer, p joint.Pair, format string, size vg.Length) error {
	pl, err := Plot(p)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = DefaultSize
	}
	wt, err := pl.WriterTo(size, size, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save renders the pair to path; the extension picks the format.
func Save(path string, p joint.Pair, size vg.Length) error {
	pl, err := Plot(p)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = DefaultSize
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		return fmt.Errorf("%s: no file extension to pick a format", path)
	}
	return pl.Save(size, size, path)
}
