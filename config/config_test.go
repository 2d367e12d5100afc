package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
conv:
  filters: 32
  kernel: 3
block.conv_1:
  kernel: [5, 5]
  padding: same
dropout:
`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, s, 3)

	assert.Equal(t, 32, s["conv"].Int("filters", 0))
	assert.Equal(t, []int{5, 5}, s["block.conv_1"].Ints("kernel", 2, 3))
	assert.Empty(t, s["dropout"])
}

func TestLoadEmpty(t *testing.T) {
	s, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestLoadRejectsScalarSection(t *testing.T) {
	_, err := Load(strings.NewReader("conv: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"conv"`)
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "sections")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	filename := filepath.Join(dir, "model.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte(doc), 0644))

	s, err := LoadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "same", s["block.conv_1"].String("padding", "valid"))

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLookupOrder(t *testing.T) {
	s, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	got := s.Lookup("conv", "block.conv_1")
	assert.Equal(t, 32, got.Int("filters", 0))
	assert.Equal(t, "same", got.String("padding", "valid"))
	assert.Equal(t, []int{5, 5}, got.Ints("kernel", 2, 0), "the fullname section wins over the basename section")

	assert.Empty(t, s.Lookup("pool"))
}

func TestEmbedded(t *testing.T) {
	opts := kwargs.Args{
		"filters": 8,
		"conv":    kwargs.Args{"filters": 16},
		"conv_1":  map[string]interface{}{"padding": "same"},
	}
	assert.Nil(t, Embedded(opts, "conv", "conv_1"), "sections are ignored without ConfKey")

	opts[ConfKey] = true
	got := Embedded(opts, "conv", "conv_1")
	assert.Equal(t, kwargs.Args{"filters": 16, "padding": "same"}, got)
}
