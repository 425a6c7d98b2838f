package profile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/parts"
)

func defaultPair(t *testing.T) joint.Pair {
	t.Helper()
	p, err := parts.DefaultConfig().Joint.Pair()
	require.NoError(t, err)
	return p
}

func TestPlotFramesBothSections(t *testing.T) {
	p := defaultPair(t)
	pl, err := Plot(p)
	require.NoError(t, err)

	// The slot encloses the rail, so the axes cover the slot.
	assert.LessOrEqual(t, pl.X.Min, -p.Slot.CavityWidth/2)
	assert.GreaterOrEqual(t, pl.X.Max, p.Slot.CavityWidth/2)
	assert.GreaterOrEqual(t, pl.Y.Max, p.Slot.Top())
	assert.InDelta(t, pl.X.Max-pl.X.Min, pl.Y.Max-pl.Y.Min, 1e-9)
	assert.Contains(t, pl.Title.Text, "clearance")
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, defaultPair(t), "png", 0))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, defaultPair(t), "bmpx", 0))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "joint.svg")
	require.NoError(t, Save(path, defaultPair(t), DefaultSize))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	assert.Error(t, Save(filepath.Join(dir, "joint"), defaultPair(t), 0))
}
