package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/config"
	"github.com/chazu/trayforge/pkg/graph"
	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/parts"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: along-y -> along_y
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	kind graph.NodeKind
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", n.kind, n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a profile point.
type sexpVec2 struct {
	vec r2.Vec
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an r3.Vec.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	fn         string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// flagKeywords may appear without a value.
var flagKeywords = map[string]bool{"flip": true, "inverted": true}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A flag keyword followed by another keyword, or by nothing, is set.
func parseArgs(fn string, args []zygo.Sexp) kwArgs {
	result := kwArgs{fn: fn, kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		bare := i+1 >= len(args)
		if !bare && flagKeywords[name] {
			_, bare = isKW(args[i+1])
		}
		if bare {
			result.kw[name] = zygo.SexpNull
			i++
			continue
		}
		result.kw[name] = args[i+1]
		i += 2
	}
	return result
}

// float sets *dst from keyword key when present.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	*dst = f
	return nil
}

// int sets *dst from keyword key when present. Floats must be whole.
func (a kwArgs) int(key string, dst *int) error {
	var f float64
	if _, ok := a.kw[key]; !ok {
		return nil
	}
	if err := a.float(key, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("%s: %s: expected a whole number, got %g", a.fn, key, f)
	}
	*dst = int(f)
	return nil
}

// flag reports whether keyword key is set and not false.
func (a kwArgs) flag(key string) (bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return false, nil
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	return b, nil
}

// vec3 sets *dst from keyword key when present.
func (a kwArgs) vec3(key string, dst *r3.Vec) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	*dst = vec
	return nil
}

// axis sets *dst from keyword key when present.
func (a kwArgs) axis(key string, dst *primitive.Axis) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	name, err := toKeywordString(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	ax, err := primitive.ParseAxis(name)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	*dst = ax
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false, or a bare flag keyword (SexpNull).
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toNodeRef extracts a node reference.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts an r3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// fromValue converts a config value into a Sexp.
func fromValue(v any) (zygo.Sexp, error) {
	switch x := v.(type) {
	case int:
		return &zygo.SexpInt{Val: int64(x)}, nil
	case float64:
		return &zygo.SexpFloat{Val: x}, nil
	case bool:
		return &zygo.SexpBool{Val: x}, nil
	case string:
		return &zygo.SexpStr{S: x}, nil
	case []any:
		items := make([]zygo.Sexp, 0, len(x))
		for _, e := range x {
			s, err := fromValue(e)
			if err != nil {
				return zygo.SexpNull, err
			}
			items = append(items, s)
		}
		return &zygo.SexpArray{Val: items}, nil
	}
	return zygo.SexpNull, fmt.Errorf("unsupported value %T", v)
}

// ---------------------------------------------------------------------------
// Graph builder
// ---------------------------------------------------------------------------

// builder accumulates the graph for one evaluation. Anonymous node IDs are
// numbered per kind in call order, so the same source yields the same IDs.
type builder struct {
	cfg    parts.Config
	g      *graph.DesignGraph
	seq    map[string]int
	bodies map[string]graph.NodeID // part name -> body
}

func newBuilder(cfg parts.Config) *builder {
	return &builder{
		cfg:    cfg,
		g:      graph.New(),
		seq:    make(map[string]int),
		bodies: make(map[string]graph.NodeID),
	}
}

func (b *builder) add(kind graph.NodeKind, data graph.NodeData, children ...graph.NodeID) *sexpNodeRef {
	prefix := kind.String()
	b.seq[prefix]++
	n := &graph.Node{
		ID:       graph.NewNodeID(fmt.Sprintf("%s/%d", prefix, b.seq[prefix])),
		Kind:     kind,
		Children: children,
		Data:     data,
	}
	b.g.AddNode(n)
	return &sexpNodeRef{id: n.ID, kind: kind}
}

func (b *builder) primitive(d primitive.Descriptor) *sexpNodeRef {
	return b.add(graph.NodePrimitive, graph.PrimitiveData{Descriptor: d})
}

// rail returns the configured rail profile with any keyword overrides.
func (b *builder) rail(a kwArgs) (joint.RailProfile, error) {
	r := b.cfg.Joint.Rail()
	for key, dst := range map[string]*float64{
		"neck-width":     &r.NeckWidth,
		"neck-height":    &r.NeckHeight,
		"head-width":     &r.HeadWidth,
		"chamfer-height": &r.ChamferHeight,
		"head-flat":      &r.HeadFlat,
	} {
		if err := a.float(key, dst); err != nil {
			return r, err
		}
	}
	return r, nil
}

// layout reads :start :length :count :spacing. Length is required.
func layout(a kwArgs) (joint.Layout, error) {
	l := joint.Layout{Count: 1}
	if _, ok := a.kw["length"]; !ok {
		return l, fmt.Errorf("%s requires :length", a.fn)
	}
	if err := a.float("start", &l.Start); err != nil {
		return l, err
	}
	if err := a.float("length", &l.Length); err != nil {
		return l, err
	}
	if err := a.int("count", &l.Count); err != nil {
		return l, err
	}
	if err := a.float("spacing", &l.Spacing); err != nil {
		return l, err
	}
	return l, nil
}

func orientation(a kwArgs) (joint.Orientation, error) {
	inv, err := a.flag("inverted")
	if err != nil || !inv {
		return joint.Upright, err
	}
	return joint.Inverted, nil
}

// children converts positional arguments to node references.
func children(fn string, args []zygo.Sexp) ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, 0, len(args))
	for i, a := range args {
		ref, err := toNodeRef(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		ids = append(ids, ref.id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtinFunc = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the part DSL into a zygomys environment. The
// builtins populate b.g during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	for name, fn := range map[string]builtinFunc{
		"box":        b.box,
		"cylinder":   b.cylinder,
		"cone":       b.cone,
		"extrude":    b.extrude,
		"vec2":       vec2,
		"vec3":       vec3,
		"place":      b.place,
		"union":      b.boolean(graph.NodeUnion),
		"difference": b.boolean(graph.NodeDifference),
		"rail":       b.railRun,
		"slot":       b.slotRun,
		"defpart":    b.defpart,
		"part":       b.part,
		"param":      b.param,
	} {
		env.AddFunction(name, fn)
	}
}

// (box 40 100 30) or (box :width 40 :depth 100 :height 30)
func (b *builder) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	var d primitive.Box
	if n := len(pa.positional); n != 0 {
		if n != 3 {
			return zygo.SexpNull, fmt.Errorf("box takes width depth height, got %d values", n)
		}
		dims := []*float64{&d.Width, &d.Depth, &d.Height}
		for i, s := range pa.positional {
			f, err := toFloat64(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
			*dims[i] = f
		}
	}
	for key, dst := range map[string]*float64{"width": &d.Width, "depth": &d.Depth, "height": &d.Height} {
		if err := pa.float(key, dst); err != nil {
			return zygo.SexpNull, err
		}
	}
	return b.primitive(d), nil
}

// (cylinder :radius 2 :length 10 :axis :z :segments 32)
func (b *builder) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	var d primitive.Cylinder
	if err := pa.float("radius", &d.Radius); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.float("length", &d.Length); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.axis("axis", &d.Axis); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.int("segments", &d.Segments); err != nil {
		return zygo.SexpNull, err
	}
	return b.primitive(d), nil
}

// (cone :radius 4 :height 3 :axis :z)
func (b *builder) cone(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	var d primitive.Cone
	if err := pa.float("radius", &d.Radius); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.float("height", &d.Height); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.axis("axis", &d.Axis); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.int("segments", &d.Segments); err != nil {
		return zygo.SexpNull, err
	}
	return b.primitive(d), nil
}

// (extrude :length 50 :points (list (vec2 0 0) (vec2 10 0) (vec2 0 10)))
func (b *builder) extrude(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	var d primitive.Extrusion
	if err := pa.float("length", &d.Length); err != nil {
		return zygo.SexpNull, err
	}
	v, ok := pa.kw["points"]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("extrude requires :points")
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("extrude: points: %w", err)
	}
	for i, item := range items {
		p, ok := item.(*sexpVec2)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("extrude: point %d: expected vec2, got %T", i+1, item)
		}
		d.Profile = append(d.Profile, p.vec)
	}
	return b.primitive(d), nil
}

// (vec2 1 2)
func vec2(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
	}
	x, err := toFloat64(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
	}
	y, err := toFloat64(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
	}
	return &sexpVec2{vec: r2.Vec{X: x, Y: y}}, nil
}

// (vec3 1 2 3)
func vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}

	x, err := toFloat64(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
	}
	y, err := toFloat64(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
	}
	z, err := toFloat64(args[2])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
	}

	return &sexpVec3{vec: r3.Vec{X: x, Y: y, Z: z}}, nil
}

// (place solid :along-y 50 :flip :rotate (vec3 0 0 90) :at (vec3 0 0 19))
//
// The steps apply in the order along-y, flip, rotate (X then Y then Z,
// in degrees), at.
func (b *builder) place(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("place requires exactly one solid, got %d", len(pa.positional))
	}
	child, err := toNodeRef(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("place: %w", err)
	}

	p := placement.Identity
	if _, ok := pa.kw["along-y"]; ok {
		var l float64
		if err := pa.float("along-y", &l); err != nil {
			return zygo.SexpNull, err
		}
		p = p.Then(placement.ProfileAlongY(l))
	}
	flip, err := pa.flag("flip")
	if err != nil {
		return zygo.SexpNull, err
	}
	if flip {
		p = p.Then(placement.Flip())
	}
	var rot, at r3.Vec
	if err := pa.vec3("rotate", &rot); err != nil {
		return zygo.SexpNull, err
	}
	for _, r := range []struct {
		axis r3.Vec
		deg  float64
	}{{placement.X, rot.X}, {placement.Y, rot.Y}, {placement.Z, rot.Z}} {
		if r.deg != 0 {
			p = p.Then(placement.RotateDeg(r.axis, r.deg))
		}
	}
	if err := pa.vec3("at", &at); err != nil {
		return zygo.SexpNull, err
	}
	p = p.Then(placement.At(at.X, at.Y, at.Z))

	return b.add(graph.NodeTransform, graph.TransformData{Placement: p}, child.id), nil
}

// (union a b ...) and (difference base cutter ...)
func (b *builder) boolean(kind graph.NodeKind) builtinFunc {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := children(name, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add(kind, graph.BooleanData{}, ids...), nil
	}
}

// (rail :length 100 :start 0 :count 3 :spacing 10 :at (vec3 0 0 30) :inverted)
//
// Profile keywords (:neck-width, :head-width, ...) default to the joint
// config.
func (b *builder) railRun(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	d := graph.RailData{}
	var err error
	if d.Profile, err = b.rail(pa); err != nil {
		return zygo.SexpNull, err
	}
	if d.Layout, err = layout(pa); err != nil {
		return zygo.SexpNull, err
	}
	if d.Orientation, err = orientation(pa); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.vec3("at", &d.At); err != nil {
		return zygo.SexpNull, err
	}
	return b.add(graph.NodeRail, d), nil
}

// (slot :length 100 :clearance 0.3 ...) takes the rail keywords plus
// :clearance, which defaults to the joint config.
func (b *builder) slotRun(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	d := graph.SlotData{Clearance: b.cfg.Joint.Clearance}
	var err error
	if d.Rail, err = b.rail(pa); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.float("clearance", &d.Clearance); err != nil {
		return zygo.SexpNull, err
	}
	if d.Layout, err = layout(pa); err != nil {
		return zygo.SexpNull, err
	}
	if d.Orientation, err = orientation(pa); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.vec3("at", &d.At); err != nil {
		return zygo.SexpNull, err
	}
	return b.add(graph.NodeSlot, d), nil
}

// (defpart "name" body :description "...")
func (b *builder) defpart(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	if len(pa.positional) != 2 {
		return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
	}
	partName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
	}
	if partName == "" {
		return zygo.SexpNull, fmt.Errorf("defpart: empty name")
	}
	if _, dup := b.bodies[partName]; dup {
		return zygo.SexpNull, fmt.Errorf("defpart: part %q already defined", partName)
	}
	body, err := toNodeRef(pa.positional[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("defpart %q: body: %w", partName, err)
	}
	data := graph.PartData{}
	if v, ok := pa.kw["description"]; ok {
		if data.Description, err = toString(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart %q: description: %w", partName, err)
		}
	}

	id := graph.NewNodeID("defpart/" + partName)
	b.g.AddNode(&graph.Node{
		ID:       id,
		Kind:     graph.NodePart,
		Name:     partName,
		Children: []graph.NodeID{body.id},
		Data:     data,
	})
	b.g.AddRoot(id)
	b.bodies[partName] = body.id

	return &sexpNodeRef{id: body.id, kind: body.kind}, nil
}

// (part "name") returns the body of an earlier defpart for reuse.
func (b *builder) part(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("part requires a name argument")
	}
	partName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
	}
	id, ok := b.bodies[partName]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
	}
	return &sexpNodeRef{id: id, kind: b.g.Get(id).Kind}, nil
}

// (param "tray.length") reads the loaded config.
func (b *builder) param(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("param requires a key argument")
	}
	key, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("param: key: %w", err)
	}
	v, err := config.Get(b.cfg, key)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("param: %w", err)
	}
	return fromValue(v)
}
