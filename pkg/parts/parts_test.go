package parts

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/kernel/bsp"
)

// noCuts refuses every difference and delegates unions.
type noCuts struct{ kernel.Kernel }

func (noCuts) Name() string { return "nocuts" }

func (noCuts) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return nil, errors.New("difference unavailable")
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func assertBounds(t *testing.T, got r3.Box, min, max r3.Vec) {
	t.Helper()
	if !near(got.Min.X, min.X) || !near(got.Min.Y, min.Y) || !near(got.Min.Z, min.Z) ||
		!near(got.Max.X, max.X) || !near(got.Max.Y, max.Y) || !near(got.Max.Z, max.Z) {
		t.Errorf("bounds = %v..%v, want %v..%v", got.Min, got.Max, min, max)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"clip", "duct", "frame", "mount", "tray", "zbracket"}, Names())
	for _, n := range Names() {
		p, ok := Lookup(n)
		require.True(t, ok, n)
		assert.Equal(t, n, p.Name)
		assert.NotEmpty(t, p.Description)
	}
	_, ok := Lookup("shelf")
	assert.False(t, ok)
}

func TestBuildUnknown(t *testing.T) {
	_, err := Build("shelf", DefaultConfig(), csg.New(bsp.New()), nil)
	assert.ErrorIs(t, err, kernel.ErrInvalidParameter)
}

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tray length", func(c *Config) { c.Tray.Length = -1 }},
		{"tray walls fill the width", func(c *Config) { c.Tray.WallThickness = 100 }},
		{"tray notch too wide", func(c *Config) { c.Tray.NotchWidth = 500 }},
		{"tray ribs without spacing", func(c *Config) { c.Tray.Ribs = true; c.Tray.RibSpacing = 0 }},
		{"nan joint neck", func(c *Config) { c.Joint.NeckWidth = math.NaN() }},
		{"head narrower than neck", func(c *Config) { c.Joint.HeadWidth = 3 }},
		{"negative clearance", func(c *Config) { c.Joint.Clearance = -0.1 }},
		{"frame lip above rail", func(c *Config) { c.Frame.LipHeight = 20 }},
		{"frame countersink through beam", func(c *Config) { c.Frame.CountersinkDepth = 3 }},
		{"frame beam off the end", func(c *Config) { c.Frame.BeamPositions = []float64{1.5} }},
		{"duct base narrower than opening", func(c *Config) { c.Duct.BaseWidth = 20 }},
		{"duct retention gap too wide", func(c *Config) { c.Duct.RetentionWidth = 24 }},
		{"zbracket lip too short", func(c *Config) { c.ZBracket.LipWidth = 2 }},
		{"mount without rib divisions", func(c *Config) { c.Mount.RibDivisions = 0 }},
		{"mount countersink too deep", func(c *Config) { c.Mount.CountersinkDepth = 20 }},
		{"clip segments overrun strip", func(c *Config) { c.Clip.Segments = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), kernel.ErrInvalidParameter)
		})
	}
}

func TestFrameRejectsShallowLip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frame.LipHeight = 6
	_, err := Frame(cfg, csg.New(bsp.New()))
	assert.ErrorIs(t, err, kernel.ErrInvalidParameter)
}

func TestClipRejectsNarrowStrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clip.Width = 3
	_, err := Clip(cfg, csg.New(bsp.New()))
	assert.ErrorIs(t, err, kernel.ErrInvalidParameter)
}

func TestPartBounds(t *testing.T) {
	cfg := DefaultConfig()
	railH := 7.5
	tests := []struct {
		name     string
		min, max r3.Vec
	}{
		{"tray", r3.Vec{X: -3, Y: 0, Z: 0}, r3.Vec{X: 123, Y: 200, Z: 57 + railH}},
		{"frame", r3.Vec{}, r3.Vec{X: 146, Y: 180, Z: 12}},
		{"duct", r3.Vec{X: -17.5, Y: 0, Z: -3}, r3.Vec{X: 17.5, Y: 200, Z: 20}},
		{"zbracket", r3.Vec{X: -5, Y: 0, Z: -9.5}, r3.Vec{X: 15, Y: 40, Z: 0}},
		{"mount", r3.Vec{}, r3.Vec{X: 112, Y: 100, Z: 9.4}},
		{"clip", r3.Vec{X: -8, Y: 0, Z: 0}, r3.Vec{X: 8, Y: 120, Z: 3 + railH}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &event.Recorder{}
			c := csg.New(bsp.New(), csg.WithSink(rec))
			out, err := Build(tt.name, cfg, c, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.name, out.Name)
			assert.Greater(t, out.Report.Volume, 0.0)
			assertBounds(t, out.Solid.Bounds(), tt.min, tt.max)
			assert.Equal(t, 1, rec.Count(event.Validated))
			assert.Positive(t, rec.Count(event.PrimitiveBuilt))
		})
	}
}

func TestEveryPartBuildsWithoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			rec := &event.Recorder{}
			out, err := Build(name, cfg, csg.New(bsp.New(), csg.WithSink(rec)), nil)
			require.NoError(t, err)
			for _, st := range out.Result.Steps {
				assert.True(t, st.Succeeded, "%s fell back: %v", st.Label, st.Err)
			}
			assert.Zero(t, out.Result.Fallbacks)
			assert.Zero(t, rec.Count(event.FallbackTriggered))
			assert.False(t, out.Report.Degraded, out.Report.String())
			assert.True(t, out.Report.Closed, out.Report.String())
		})
	}
}

func TestScrewHolesAreCut(t *testing.T) {
	tests := []struct {
		name, prefix string
		want         int
	}{
		{"mount", "mount.hole[", 4},
		{"frame", "frame.beam[", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Build(tt.name, DefaultConfig(), csg.New(bsp.New()), nil)
			require.NoError(t, err)
			var cut int
			for _, st := range out.Result.Steps {
				if strings.HasPrefix(st.Label, tt.prefix) && st.Succeeded {
					cut++
				}
			}
			assert.Equal(t, tt.want, cut)
			assert.False(t, out.Solid.Degraded)
		})
	}
}

func TestZBracketClosed(t *testing.T) {
	out, err := Build("zbracket", DefaultConfig(), csg.New(bsp.New()), nil)
	require.NoError(t, err)
	assert.True(t, out.Report.Closed, out.Report.String())
	assert.False(t, out.Report.Degraded)
	assert.Zero(t, out.Report.Fallbacks)
	// Two 4.5 mm holes through the 3 mm top plate, as 32-gons.
	plate := 3.0 * 40 * 15
	hole := 0.5 * 32 * math.Sin(2*math.Pi/32) * 2.25 * 2.25 * 3
	want := plate - 2*hole + 3*40*3.5 + 8*40*3
	assert.InEpsilon(t, want, out.Report.Volume, 1e-6)
}

func TestFailedCutsDegrade(t *testing.T) {
	rec := &event.Recorder{}
	c := csg.New(noCuts{bsp.New()}, csg.WithSink(rec))
	out, err := Build("zbracket", DefaultConfig(), c, nil)
	require.NoError(t, err)
	assert.True(t, out.Result.Degraded)
	assert.True(t, out.Report.Degraded)
	assert.Equal(t, 2, out.Report.Fallbacks)
	assert.Equal(t, 2, rec.Count(event.FallbackTriggered))
	// The holes were skipped, nothing else was lost.
	assert.InEpsilon(t, 3.0*40*15+3*40*3.5+8*40*3, out.Report.Volume, 1e-6)
}

func TestTrayRibsAddVolume(t *testing.T) {
	cfg := DefaultConfig()
	c := csg.New(bsp.New())
	plain, err := Tray(cfg, c)
	require.NoError(t, err)
	cfg.Tray.Ribs = true
	cfg.Tray.RibSpacing = 20
	ribbed, err := Tray(cfg, c)
	require.NoError(t, err)
	assert.Greater(t, ribbed.Solid.Volume(), plain.Solid.Volume())
	assert.Greater(t, len(ribbed.Steps), len(plain.Steps))
}

func TestDuctProfile(t *testing.T) {
	d := DefaultConfig().Duct
	p := DuctProfile(d)
	require.Len(t, p, 20)
	var area float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		area += a.X*b.Y - b.X*a.Y
	}
	area /= 2
	// base + two walls + two retention lips
	inner := d.OpeningWidth/2 - d.WallThickness
	want := d.BaseWidth*d.BaseThickness +
		2*d.WallThickness*d.OpeningHeight +
		2*(inner-d.RetentionWidth/2)*d.WallThickness
	assert.InDelta(t, want, area, 1e-9)
}
