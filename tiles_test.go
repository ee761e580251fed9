package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTiles(t *testing.T) {
	data := []struct {
		Name  string
		Input string
	}{
		{
			Name: "commented header",
			Input: `# ID ra_center dec_center
1 10.5 -20.0
# skipped
2 11.5 -21.0

3 12.5 -22.0
`,
		},
		{
			Name: "extra columns",
			Input: `field ra_center ID dec_center
a 10.5 1 -20.0
b 11.5 2 -21.0
c 12.5 3 -22.0
`,
		},
	}
	for _, d := range data {
		ts, err := ReadTiles(strings.NewReader(d.Input), d.Name)
		require.NoError(t, err, d.Name)
		require.Len(t, ts, 3, d.Name)
		assert.Equal(t, Tile{ID: 1, RA: 10.5, Dec: -20}, ts[0], d.Name)
		assert.Equal(t, Tile{ID: 3, RA: 12.5, Dec: -22}, ts[2], d.Name)
	}
}

func TestReadTilesErrors(t *testing.T) {
	data := []string{
		"1 10.5 -20.0\n",
		"ID ra_center dec_center\n1 ten -20.0\n",
		"ID ra_center dec_center\n1 10.5\n",
		"ID ra_center dec_center\n",
	}
	for _, d := range data {
		_, err := ReadTiles(strings.NewReader(d), "tiles.txt")
		assert.Error(t, err, d)
	}
}

func TestLoadTilesMissing(t *testing.T) {
	_, err := LoadTiles(filepath.Join(t.TempDir(), "tiles.txt"))
	assert.True(t, errors.Is(err, ErrTileFileMissing))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, TileFileMissingErrCode, e.Code)
}

func TestTileLookup(t *testing.T) {
	ts := []Tile{{ID: 4, RA: 1}, {ID: 9, RA: 2}}
	m := tileLookup(ts)
	assert.Len(t, m, 2)
	assert.Equal(t, 2.0, m[9].RA)
	assert.Equal(t, Coord{RA: 1}, m[4].Coord())
}
