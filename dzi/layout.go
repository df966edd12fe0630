// Package dzi describes Deep Zoom pyramids: level geometry, the XML
// descriptor, and a writer that tiles an in-memory image.
package dzi

import (
	"fmt"
	"image"

	"ndpi2dzi/contracts"
)

// Layout is the tile geometry of a pyramid for one source image.
type Layout struct {
	Width    int
	Height   int
	TileSize int
	Overlap  int
	Depth    contracts.DepthMode
}

type Tile struct {
	Level int
	Col   int
	Row   int
	Rect  image.Rectangle
}

// MaxLevel is the DeepZoom number of the full-resolution level:
// ceil(log2(max(width, height))).
func (l Layout) MaxLevel() int {
	m := max(l.Width, l.Height)
	level := 0
	for (1 << level) < m {
		level++
	}
	return level
}

// MinLevel is the smallest level the depth mode generates.
func (l Layout) MinLevel() int {
	top := l.MaxLevel()
	switch l.Depth {
	case contracts.DepthOnePixel:
		return 0
	case contracts.DepthOne:
		return top
	}
	for level := top; level > 0; level-- {
		w, h := l.LevelSize(level)
		if w <= l.TileSize && h <= l.TileSize {
			return level
		}
	}
	return 0
}

// Levels lists generated levels from full resolution down.
func (l Layout) Levels() []int {
	top, bottom := l.MaxLevel(), l.MinLevel()
	levels := make([]int, 0, top-bottom+1)
	for level := top; level >= bottom; level-- {
		levels = append(levels, level)
	}
	return levels
}

func (l Layout) LevelSize(level int) (int, int) {
	shift := l.MaxLevel() - level
	if shift <= 0 {
		return l.Width, l.Height
	}
	return ceilShift(l.Width, shift), ceilShift(l.Height, shift)
}

// Grid returns the number of tile columns and rows at level.
func (l Layout) Grid(level int) (int, int) {
	w, h := l.LevelSize(level)
	return ceilDiv(w, l.TileSize), ceilDiv(h, l.TileSize)
}

// TileRect is the pixel area of a tile in level coordinates. Tiles extend
// Overlap pixels past their grid cell on every side that has a neighbour.
func (l Layout) TileRect(level, col, row int) image.Rectangle {
	w, h := l.LevelSize(level)
	return image.Rect(
		tileStart(col, l.TileSize, l.Overlap),
		tileStart(row, l.TileSize, l.Overlap),
		min(w, (col+1)*l.TileSize+l.Overlap),
		min(h, (row+1)*l.TileSize+l.Overlap),
	)
}

func (l Layout) Tiles(level int) []Tile {
	cols, rows := l.Grid(level)
	tiles := make([]Tile, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			tiles = append(tiles, Tile{
				Level: level,
				Col:   col,
				Row:   row,
				Rect:  l.TileRect(level, col, row),
			})
		}
	}
	return tiles
}

// TileCount is the total number of tiles over all generated levels.
func (l Layout) TileCount() int {
	n := 0
	for _, level := range l.Levels() {
		cols, rows := l.Grid(level)
		n += cols * rows
	}
	return n
}

func (t Tile) Name(format string) string {
	return fmt.Sprintf("%d_%d.%s", t.Col, t.Row, format)
}

func tileStart(i, size, overlap int) int {
	if i == 0 {
		return 0
	}
	return i*size - overlap
}

func ceilShift(n, shift int) int {
	return (n + (1 << shift) - 1) >> shift
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
