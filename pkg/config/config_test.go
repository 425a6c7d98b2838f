package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/trayforge/pkg/parts"
)

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, parts.DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.yaml")
	doc := `
tray:
  length: 250
  ribs: true
joint:
  clearance: 0.3
frame:
  beam_positions: [0, 1]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	def := parts.DefaultConfig()
	assert.Equal(t, 250.0, cfg.Tray.Length)
	assert.True(t, cfg.Tray.Ribs)
	assert.Equal(t, def.Tray.Width, cfg.Tray.Width)
	assert.Equal(t, 0.3, cfg.Joint.Clearance)
	assert.Equal(t, def.Joint.HeadWidth, cfg.Joint.HeadWidth)
	assert.Equal(t, []float64{0, 1}, cfg.Frame.BeamPositions)
	assert.Equal(t, def.Mount, cfg.Mount)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tray:\n  lenght: 250\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg := parts.DefaultConfig()
	require.NoError(t, Decode(strings.NewReader(""), &cfg))
	assert.Equal(t, parts.DefaultConfig(), cfg)
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, parts.DefaultConfig()))
	assert.Contains(t, buf.String(), "neck_width: 4")

	var cfg parts.Config
	require.NoError(t, Decode(&buf, &cfg))
	assert.Equal(t, parts.DefaultConfig(), cfg)
}

func TestApplyOverrides(t *testing.T) {
	cfg := parts.DefaultConfig()
	err := ApplyOverrides(&cfg, []string{
		"tray.length=250",
		"joint.clearance=0.25",
		"tray.ribs=true",
		"mount.rib_divisions=3",
		"frame.beam_positions=[0.2, 0.8]",
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, cfg.Tray.Length)
	assert.Equal(t, 0.25, cfg.Joint.Clearance)
	assert.True(t, cfg.Tray.Ribs)
	assert.Equal(t, 3, cfg.Mount.RibDivisions)
	assert.Equal(t, []float64{0.2, 0.8}, cfg.Frame.BeamPositions)
	assert.Equal(t, parts.DefaultConfig().Duct, cfg.Duct)
}

func TestApplyOverridesErrors(t *testing.T) {
	tests := []struct {
		name     string
		override string
		want     error
	}{
		{"no equals", "tray.length", ErrBadOverride},
		{"empty key", "=3", ErrBadOverride},
		{"unknown section", "shelf.length=3", ErrUnknownKey},
		{"unknown field", "tray.lenght=3", ErrUnknownKey},
		{"section as value", "tray=3", ErrUnknownKey},
		{"too deep", "tray.length.mm=3", ErrUnknownKey},
		{"not a number", "tray.length=long", ErrBadOverride},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parts.DefaultConfig()
			err := ApplyOverrides(&cfg, []string{tt.override})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, parts.DefaultConfig(), cfg)
		})
	}
}

func TestKeys(t *testing.T) {
	keys, err := Keys(parts.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, keys, "tray.length")
	assert.Contains(t, keys, "joint.clearance")
	assert.Contains(t, keys, "frame.beam_positions")
	assert.NotContains(t, keys, "tray")
}

func TestGet(t *testing.T) {
	cfg := parts.DefaultConfig()
	cfg.Tray.Length = 250

	v, err := Get(cfg, "tray.length")
	require.NoError(t, err)
	assert.EqualValues(t, 250, v)

	v, err = Get(cfg, "tray.ribs")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	for _, key := range []string{"tray", "tray.lenght", "tray.length.mm", "shelf.length"} {
		_, err := Get(cfg, key)
		assert.ErrorIs(t, err, ErrUnknownKey, key)
	}
}
