// Package config loads part parameters from YAML files and command-line
// overrides on top of the built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/chazu/trayforge/pkg/parts"
)

var (
	// ErrUnknownKey reports a config or override key no part defines.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrBadOverride reports an override not of the form key=value.
	ErrBadOverride = errors.New("malformed override")
)

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults. Keys absent from the file keep their default;
// unknown keys are an error.
func Load(path string) (parts.Config, error) {
	cfg := parts.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the YAML document read from r on cfg.
func Decode(r io.Reader, cfg *parts.Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty document
		}
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg parts.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// ApplyOverrides sets dotted keys such as "tray.length=250" on cfg. Values
// are parsed as YAML scalars or flow sequences, so "joint.clearance=0.3"
// and "frame.beam_positions=[0, 1]" both work. cfg is unchanged on error.
func ApplyOverrides(cfg *parts.Config, overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	tree, err := toTree(*cfg)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		key, raw, ok := strings.Cut(o, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("%w: %q", ErrBadOverride, o)
		}
		var val any
		if err := yaml.Unmarshal([]byte(raw), &val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadOverride, key, err)
		}
		if err := set(tree, strings.Split(key, "."), val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	var out parts.Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("%w: %v", ErrBadOverride, err)
	}
	*cfg = out
	return nil
}

// Keys lists every settable dotted key, sorted.
func Keys(cfg parts.Config) ([]string, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			out = append(out, prefix+k)
		}
	}
	walk("", tree)
	sort.Strings(out)
	return out, nil
}

func toTree(cfg parts.Config) (map[string]any, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(buf.Bytes(), &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func set(tree map[string]any, path []string, val any) error {
	m := tree
	for i, p := range path {
		cur, ok := m[p]
		if !ok {
			return ErrUnknownKey
		}
		if i == len(path)-1 {
			if _, isSection := cur.(map[string]any); isSection {
				return fmt.Errorf("%w: a section, not a value", ErrUnknownKey)
			}
			m[p] = val
			return nil
		}
		sub, ok := cur.(map[string]any)
		if !ok {
			return ErrUnknownKey
		}
		m = sub
	}
	return nil
}

// Get returns the value at a dotted key: a float64, an int, a bool or a
// []any for sequences.
func Get(cfg parts.Config, key string) (any, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	var cur any = tree
	for _, p := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrUnknownKey)
		}
		if cur, ok = m[p]; !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrUnknownKey)
		}
	}
	if _, isSection := cur.(map[string]any); isSection {
		return nil, fmt.Errorf("%s: %w: a section, not a value", key, ErrUnknownKey)
	}
	return cur, nil
}
