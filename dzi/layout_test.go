package dzi

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndpi2dzi/contracts"
)

func TestMaxLevel(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          int
	}{
		{name: "single pixel", width: 1, height: 1, want: 0},
		{name: "power of two", width: 1024, height: 512, want: 10},
		{name: "just above power of two", width: 1025, height: 10, want: 11},
		{name: "tall image", width: 3, height: 600, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Layout{Width: tt.width, Height: tt.height, TileSize: 254}
			assert.Equal(t, tt.want, l.MaxLevel())
		})
	}
}

func TestLevelsByDepth(t *testing.T) {
	base := Layout{Width: 1000, Height: 600, TileSize: 254, Overlap: 1}

	tests := []struct {
		depth contracts.DepthMode
		want  []int
	}{
		{depth: contracts.DepthOne, want: []int{10}},
		// level 8 is 250x150, the first to fit a 254 tile
		{depth: contracts.DepthOneTile, want: []int{10, 9, 8}},
		{depth: contracts.DepthOnePixel, want: []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			l := base
			l.Depth = tt.depth
			assert.Equal(t, tt.want, l.Levels())
		})
	}
}

func TestOneTileWhenImageFitsOneTile(t *testing.T) {
	l := Layout{Width: 200, Height: 100, TileSize: 254, Depth: contracts.DepthOneTile}
	assert.Equal(t, []int{8}, l.Levels())
}

func TestLevelSizeRoundsUp(t *testing.T) {
	l := Layout{Width: 1000, Height: 601, TileSize: 254}

	w, h := l.LevelSize(10)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 601, h)

	w, h = l.LevelSize(9)
	assert.Equal(t, 500, w)
	assert.Equal(t, 301, h)

	w, h = l.LevelSize(0)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestTileRectOverlap(t *testing.T) {
	l := Layout{Width: 1000, Height: 600, TileSize: 254, Overlap: 1}

	cols, rows := l.Grid(10)
	require.Equal(t, 4, cols)
	require.Equal(t, 3, rows)

	assert.Equal(t, image.Rect(0, 0, 255, 255), l.TileRect(10, 0, 0))
	assert.Equal(t, image.Rect(253, 253, 509, 509), l.TileRect(10, 1, 1), "interior tile")
	assert.Equal(t, 256, l.TileRect(10, 1, 1).Dx(), "tile_size + 2*overlap")
	assert.Equal(t, image.Rect(761, 507, 1000, 600), l.TileRect(10, 3, 2), "boundary tile is clipped")
}

func TestTileCountFollowsTileSize(t *testing.T) {
	small := Layout{Width: 1024, Height: 1024, TileSize: 128, Depth: contracts.DepthOne}
	large := Layout{Width: 1024, Height: 1024, TileSize: 512, Depth: contracts.DepthOne}

	assert.Equal(t, 64, small.TileCount())
	assert.Equal(t, 4, large.TileCount())
}

func TestTileName(t *testing.T) {
	tile := Tile{Level: 3, Col: 2, Row: 7}
	assert.Equal(t, "2_7.jpeg", tile.Name(FormatJPEG))
}
