package parts

import (
	"fmt"
	"math"

	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/kernel"
)

// Config holds the parameter table of every part. All lengths are in mm.
type Config struct {
	Joint    JointConfig    `yaml:"joint"`
	Tray     TrayConfig     `yaml:"tray"`
	Frame    FrameConfig    `yaml:"frame"`
	Duct     DuctConfig     `yaml:"duct"`
	ZBracket ZBracketConfig `yaml:"zbracket"`
	Mount    MountConfig    `yaml:"mount"`
	Clip     ClipConfig     `yaml:"clip"`
}

// JointConfig is the rail shared by the tray, the frame and the clips.
type JointConfig struct {
	NeckWidth     float64 `yaml:"neck_width"`
	NeckHeight    float64 `yaml:"neck_height"`
	HeadWidth     float64 `yaml:"head_width"`
	ChamferHeight float64 `yaml:"chamfer_height"`
	HeadFlat      float64 `yaml:"head_flat"`
	Clearance     float64 `yaml:"clearance"`
}

// TrayConfig is the enclosed cable tray.
type TrayConfig struct {
	Length         float64 `yaml:"length"`
	Width          float64 `yaml:"width"`
	Depth          float64 `yaml:"depth"` // cavity depth
	WallThickness  float64 `yaml:"wall_thickness"`
	FloorThickness float64 `yaml:"floor_thickness"`
	EndWall        float64 `yaml:"end_wall"`
	NotchWidth     float64 `yaml:"notch_width"`
	NotchHeight    float64 `yaml:"notch_height"`
	Ribs           bool    `yaml:"ribs"`
	RibSpacing     float64 `yaml:"rib_spacing"`
	RibDepth       float64 `yaml:"rib_depth"`
	RibWidth       float64 `yaml:"rib_width"`
}

// FrameConfig is the desk-mounted frame the tray slides into.
type FrameConfig struct {
	Length           float64   `yaml:"length"`
	RailWidth        float64   `yaml:"rail_width"`
	RailHeight       float64   `yaml:"rail_height"`
	LipHeight        float64   `yaml:"lip_height"`
	LipMargin        float64   `yaml:"lip_margin"` // material left beside the slot
	SideClearance    float64   `yaml:"side_clearance"`
	BeamWidth        float64   `yaml:"beam_width"`
	BeamThickness    float64   `yaml:"beam_thickness"`
	BeamPositions    []float64 `yaml:"beam_positions"` // fractions of the length
	StopThickness    float64   `yaml:"stop_thickness"`
	ScrewHole        float64   `yaml:"screw_hole"`
	Countersink      float64   `yaml:"countersink"`
	CountersinkDepth float64   `yaml:"countersink_depth"`
	ScrewInset       float64   `yaml:"screw_inset"`
}

// DuctConfig is the wire duct with an internal retention lip.
type DuctConfig struct {
	Length           float64 `yaml:"length"`
	OpeningWidth     float64 `yaml:"opening_width"`
	OpeningHeight    float64 `yaml:"opening_height"`
	WallThickness    float64 `yaml:"wall_thickness"`
	RetentionWidth   float64 `yaml:"retention_width"`
	RetentionHeight  float64 `yaml:"retention_height"`
	BaseWidth        float64 `yaml:"base_width"`
	BaseThickness    float64 `yaml:"base_thickness"`
	ScrewHole        float64 `yaml:"screw_hole"`
	Countersink      float64 `yaml:"countersink"`
	CountersinkDepth float64 `yaml:"countersink_depth"`
	ScrewInset       float64 `yaml:"screw_inset"`
	Ribs             bool    `yaml:"ribs"`
	RibSpacing       float64 `yaml:"rib_spacing"`
	RibWidth         float64 `yaml:"rib_width"`
	RibDepth         float64 `yaml:"rib_depth"`
}

// ZBracketConfig is the Z-shaped bracket a tray head rests on.
type ZBracketConfig struct {
	Thickness float64 `yaml:"thickness"`
	Length    float64 `yaml:"length"`
	TopWidth  float64 `yaml:"top_width"`
	Drop      float64 `yaml:"drop"`
	LipWidth  float64 `yaml:"lip_width"`
	ScrewHole float64 `yaml:"screw_hole"`
}

// MountConfig is the sandwich wall mount.
type MountConfig struct {
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	FrontThickness   float64 `yaml:"front_thickness"`
	BackThickness    float64 `yaml:"back_thickness"`
	SpacerGap        float64 `yaml:"spacer_gap"`
	SpacerWall       float64 `yaml:"spacer_wall"`
	InsetLeft        float64 `yaml:"inset_left"`
	InsetRight       float64 `yaml:"inset_right"`
	InsetTop         float64 `yaml:"inset_top"`
	InsetBottom      float64 `yaml:"inset_bottom"`
	RibDivisions     int     `yaml:"rib_divisions"`
	RibThickness     float64 `yaml:"rib_thickness"`
	ScrewHole        float64 `yaml:"screw_hole"`
	ScrewSpacingH    float64 `yaml:"screw_spacing_h"`
	ScrewSpacingV    float64 `yaml:"screw_spacing_v"`
	Countersink      float64 `yaml:"countersink"`
	CountersinkDepth float64 `yaml:"countersink_depth"`
	CountersinkFlat  float64 `yaml:"countersink_flat"`
	PillarDiameter   float64 `yaml:"pillar_diameter"`
}

// ClipConfig is a base strip carrying short rail segments.
type ClipConfig struct {
	Length        float64 `yaml:"length"`
	Width         float64 `yaml:"width"`
	Thickness     float64 `yaml:"thickness"`
	SegmentLength float64 `yaml:"segment_length"`
	Segments      int     `yaml:"segments"`
	Spacing       float64 `yaml:"spacing"`
}

// DefaultConfig returns the parameters the parts were designed with.
func DefaultConfig() Config {
	return Config{
		Joint: JointConfig{
			NeckWidth:     4,
			NeckHeight:    4,
			HeadWidth:     10,
			ChamferHeight: 3,
			HeadFlat:      0.5,
			Clearance:     0.5,
		},
		Tray: TrayConfig{
			Length:         200,
			Width:          120,
			Depth:          55,
			WallThickness:  4,
			FloorThickness: 2,
			EndWall:        2.5,
			NotchWidth:     25,
			NotchHeight:    20,
			RibSpacing:     4,
			RibDepth:       1.2,
			RibWidth:       2,
		},
		Frame: FrameConfig{
			Length:           180,
			RailWidth:        12,
			RailHeight:       12,
			LipHeight:        10,
			LipMargin:        2,
			SideClearance:    1,
			BeamWidth:        12,
			BeamThickness:    3,
			BeamPositions:    []float64{0, 0.5, 1},
			StopThickness:    2.5,
			ScrewHole:        4.5,
			Countersink:      9,
			CountersinkDepth: 1.5,
			ScrewInset:       15,
		},
		Duct: DuctConfig{
			Length:           200,
			OpeningWidth:     25,
			OpeningHeight:    20,
			WallThickness:    2.5,
			RetentionWidth:   10,
			RetentionHeight:  8,
			BaseWidth:        35,
			BaseThickness:    3,
			ScrewHole:        4,
			Countersink:      8,
			CountersinkDepth: 2.5,
			ScrewInset:       20,
			RibSpacing:       8,
			RibWidth:         1.5,
			RibDepth:         0.8,
		},
		ZBracket: ZBracketConfig{
			Thickness: 3,
			Length:    40,
			TopWidth:  15,
			Drop:      3.5,
			LipWidth:  8,
			ScrewHole: 4.5,
		},
		Mount: MountConfig{
			Width:            112,
			Height:           100,
			FrontThickness:   2.4,
			BackThickness:    5,
			SpacerGap:        2,
			SpacerWall:       5,
			InsetLeft:        10,
			InsetRight:       10,
			InsetTop:         4,
			RibDivisions:     2,
			RibThickness:     3,
			ScrewHole:        5,
			ScrewSpacingH:    70,
			ScrewSpacingV:    60,
			Countersink:      10,
			CountersinkDepth: 5,
			CountersinkFlat:  2,
			PillarDiameter:   14,
		},
		Clip: ClipConfig{
			Length:        120,
			Width:         16,
			Thickness:     3,
			SegmentLength: 15,
			Segments:      4,
			Spacing:       15,
		},
	}
}

type field struct {
	name string
	v    float64
}

func positive(section string, fields ...field) error {
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("%w: %s.%s must be positive, got %v", kernel.ErrInvalidParameter, section, f.name, f.v)
		}
	}
	return nil
}

func nonNegative(section string, fields ...field) error {
	for _, f := range fields {
		if math.IsNaN(f.v) || f.v < 0 {
			return fmt.Errorf("%w: %s.%s must not be negative, got %v", kernel.ErrInvalidParameter, section, f.name, f.v)
		}
	}
	return nil
}

// Rail returns the rail cross-section.
func (j JointConfig) Rail() joint.RailProfile {
	return joint.RailProfile{
		NeckWidth:     j.NeckWidth,
		NeckHeight:    j.NeckHeight,
		HeadWidth:     j.HeadWidth,
		ChamferHeight: j.ChamferHeight,
		HeadFlat:      j.HeadFlat,
	}
}

// Pair derives the rail and its matching slot.
func (j JointConfig) Pair() (joint.Pair, error) {
	return joint.Derive(j.Rail(), j.Clearance)
}

func (j JointConfig) Validate() error {
	if err := j.Rail().Validate(); err != nil {
		return err
	}
	return nonNegative("joint", field{"clearance", j.Clearance})
}

func (c TrayConfig) Validate() error {
	if err := positive("tray",
		field{"length", c.Length},
		field{"width", c.Width},
		field{"depth", c.Depth},
		field{"wall_thickness", c.WallThickness},
		field{"floor_thickness", c.FloorThickness},
		field{"end_wall", c.EndWall},
	); err != nil {
		return err
	}
	if err := nonNegative("tray", field{"notch_width", c.NotchWidth}, field{"notch_height", c.NotchHeight}); err != nil {
		return err
	}
	if c.Ribs {
		if err := positive("tray", field{"rib_spacing", c.RibSpacing}, field{"rib_depth", c.RibDepth}, field{"rib_width", c.RibWidth}); err != nil {
			return err
		}
	}
	if 2*c.WallThickness >= c.Width || 2*c.EndWall >= c.Length {
		return fmt.Errorf("%w: tray walls leave no cavity", kernel.ErrInvalidParameter)
	}
	if c.NotchWidth >= c.Width-2*c.WallThickness {
		return fmt.Errorf("%w: tray notch %v wider than the cavity", kernel.ErrInvalidParameter, c.NotchWidth)
	}
	return nil
}

func (c FrameConfig) Validate() error {
	if err := positive("frame",
		field{"length", c.Length},
		field{"rail_width", c.RailWidth},
		field{"rail_height", c.RailHeight},
		field{"lip_height", c.LipHeight},
		field{"lip_margin", c.LipMargin},
		field{"beam_width", c.BeamWidth},
		field{"beam_thickness", c.BeamThickness},
		field{"stop_thickness", c.StopThickness},
		field{"screw_hole", c.ScrewHole},
		field{"countersink", c.Countersink},
		field{"countersink_depth", c.CountersinkDepth},
	); err != nil {
		return err
	}
	if err := nonNegative("frame", field{"side_clearance", c.SideClearance}, field{"screw_inset", c.ScrewInset}); err != nil {
		return err
	}
	if c.LipHeight > c.RailHeight {
		return fmt.Errorf("%w: frame lip %v taller than rail %v", kernel.ErrInvalidParameter, c.LipHeight, c.RailHeight)
	}
	if c.CountersinkDepth >= c.BeamThickness {
		return fmt.Errorf("%w: frame countersink %v cuts through beam %v", kernel.ErrInvalidParameter, c.CountersinkDepth, c.BeamThickness)
	}
	for _, p := range c.BeamPositions {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: frame beam position %v outside [0, 1]", kernel.ErrInvalidParameter, p)
		}
	}
	return nil
}

func (c DuctConfig) Validate() error {
	if err := positive("duct",
		field{"length", c.Length},
		field{"opening_width", c.OpeningWidth},
		field{"opening_height", c.OpeningHeight},
		field{"wall_thickness", c.WallThickness},
		field{"retention_width", c.RetentionWidth},
		field{"retention_height", c.RetentionHeight},
		field{"base_width", c.BaseWidth},
		field{"base_thickness", c.BaseThickness},
		field{"screw_hole", c.ScrewHole},
		field{"countersink", c.Countersink},
		field{"countersink_depth", c.CountersinkDepth},
	); err != nil {
		return err
	}
	if c.Ribs {
		if err := positive("duct", field{"rib_spacing", c.RibSpacing}, field{"rib_width", c.RibWidth}, field{"rib_depth", c.RibDepth}); err != nil {
			return err
		}
	}
	inner := c.OpeningWidth/2 - c.WallThickness
	switch {
	case c.BaseWidth < c.OpeningWidth:
		return fmt.Errorf("%w: duct base %v narrower than opening %v", kernel.ErrInvalidParameter, c.BaseWidth, c.OpeningWidth)
	case c.RetentionWidth/2 >= inner:
		return fmt.Errorf("%w: duct retention gap %v leaves no lip", kernel.ErrInvalidParameter, c.RetentionWidth)
	case c.RetentionHeight+c.WallThickness >= c.OpeningHeight:
		return fmt.Errorf("%w: duct retention lip above the opening", kernel.ErrInvalidParameter)
	case c.Countersink/2 >= inner || c.CountersinkDepth >= c.BaseThickness:
		return fmt.Errorf("%w: duct countersink does not fit the floor", kernel.ErrInvalidParameter)
	case 2*c.ScrewInset >= c.Length:
		return fmt.Errorf("%w: duct screw inset %v too large for length %v", kernel.ErrInvalidParameter, c.ScrewInset, c.Length)
	}
	return nil
}

func (c ZBracketConfig) Validate() error {
	if err := positive("zbracket",
		field{"thickness", c.Thickness},
		field{"length", c.Length},
		field{"top_width", c.TopWidth},
		field{"drop", c.Drop},
		field{"lip_width", c.LipWidth},
		field{"screw_hole", c.ScrewHole},
	); err != nil {
		return err
	}
	if c.TopWidth/2-c.ScrewHole/2 <= c.Thickness {
		return fmt.Errorf("%w: zbracket screw hole reaches the drop", kernel.ErrInvalidParameter)
	}
	if c.LipWidth <= c.Thickness {
		return fmt.Errorf("%w: zbracket lip %v not wider than thickness %v", kernel.ErrInvalidParameter, c.LipWidth, c.Thickness)
	}
	return nil
}

func (c MountConfig) Validate() error {
	if err := positive("mount",
		field{"width", c.Width},
		field{"height", c.Height},
		field{"front_thickness", c.FrontThickness},
		field{"back_thickness", c.BackThickness},
		field{"spacer_gap", c.SpacerGap},
		field{"spacer_wall", c.SpacerWall},
		field{"rib_thickness", c.RibThickness},
		field{"screw_hole", c.ScrewHole},
		field{"countersink", c.Countersink},
		field{"countersink_depth", c.CountersinkDepth},
		field{"countersink_flat", c.CountersinkFlat},
		field{"pillar_diameter", c.PillarDiameter},
	); err != nil {
		return err
	}
	if err := nonNegative("mount",
		field{"inset_left", c.InsetLeft},
		field{"inset_right", c.InsetRight},
		field{"inset_top", c.InsetTop},
		field{"inset_bottom", c.InsetBottom},
		field{"screw_spacing_h", c.ScrewSpacingH},
		field{"screw_spacing_v", c.ScrewSpacingV},
	); err != nil {
		return err
	}
	if c.RibDivisions < 1 {
		return fmt.Errorf("%w: mount.rib_divisions must be at least 1, got %d", kernel.ErrInvalidParameter, c.RibDivisions)
	}
	if c.Width-c.InsetLeft-c.InsetRight <= 2*c.SpacerWall || c.Height-c.InsetTop-c.InsetBottom <= 2*c.SpacerWall {
		return fmt.Errorf("%w: mount insets leave no back plate", kernel.ErrInvalidParameter)
	}
	total := c.BackThickness + c.SpacerGap + c.FrontThickness
	if c.CountersinkFlat >= c.CountersinkDepth || c.CountersinkDepth >= total {
		return fmt.Errorf("%w: mount countersink depth %v does not fit %v thickness", kernel.ErrInvalidParameter, c.CountersinkDepth, total)
	}
	if c.Countersink <= c.ScrewHole || c.PillarDiameter <= c.ScrewHole {
		return fmt.Errorf("%w: mount countersink and pillar must be wider than the screw hole", kernel.ErrInvalidParameter)
	}
	return nil
}

func (c ClipConfig) Validate() error {
	if err := positive("clip",
		field{"length", c.Length},
		field{"width", c.Width},
		field{"thickness", c.Thickness},
		field{"segment_length", c.SegmentLength},
	); err != nil {
		return err
	}
	if c.Segments < 1 {
		return fmt.Errorf("%w: clip.segments must be at least 1, got %d", kernel.ErrInvalidParameter, c.Segments)
	}
	if err := nonNegative("clip", field{"spacing", c.Spacing}); err != nil {
		return err
	}
	if ext := float64(c.Segments)*c.SegmentLength + float64(c.Segments-1)*c.Spacing; ext > c.Length {
		return fmt.Errorf("%w: clip segments span %v, longer than the strip %v", kernel.ErrInvalidParameter, ext, c.Length)
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Joint, c.Tray, c.Frame, c.Duct, c.ZBracket, c.Mount, c.Clip} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
