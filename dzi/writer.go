package dzi

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"ndpi2dzi/contracts"
	"ndpi2dzi/files_manager"
)

const (
	FormatJPEG = "jpeg"

	maxTileSize = 8192
	maxOverlap  = 8192
)

// Writer tiles an in-memory image into a DZI pyramid on disk.
type Writer struct {
	Options contracts.ExportOptions
	Logger  *log.Logger
}

func NewWriter(opts contracts.ExportOptions, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{Options: opts, Logger: logger}
}

// Validate applies the same limits as libvips dzsave. Values are rejected,
// never clamped.
func Validate(opts contracts.ExportOptions) error {
	if opts.TileSize < 1 || opts.TileSize > maxTileSize {
		return fmt.Errorf("tile-size should be in range [1, %d], got %d", maxTileSize, opts.TileSize)
	}
	if opts.Overlap < 0 || opts.Overlap > maxOverlap {
		return fmt.Errorf("overlap should be in range [0, %d], got %d", maxOverlap, opts.Overlap)
	}
	if opts.Overlap >= opts.TileSize {
		return fmt.Errorf("overlap too large: %d >= tile-size %d", opts.Overlap, opts.TileSize)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return fmt.Errorf("Q should be in range [1, 100], got %d", opts.Quality)
	}
	switch opts.Depth {
	case contracts.DepthOneTile, contracts.DepthOnePixel, contracts.DepthOne:
	default:
		return fmt.Errorf("unknown depth %q", opts.Depth)
	}
	return nil
}

// Write produces the descriptor and tile tree for base from img.
func (w *Writer) Write(img image.Image, base string) error {
	if err := Validate(w.Options); err != nil {
		return err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return fmt.Errorf("image has no pixels")
	}
	layout := Layout{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		TileSize: w.Options.TileSize,
		Overlap:  w.Options.Overlap,
		Depth:    w.Options.Depth,
	}

	tilesDir := files_manager.TilesDir(base)
	if err := os.MkdirAll(tilesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", tilesDir, err)
	}

	w.Logger.Debug("writing pyramid", "width", layout.Width, "height", layout.Height,
		"levels", len(layout.Levels()), "tiles", layout.TileCount())

	var current image.Image = imaging.Clone(img)
	for _, level := range layout.Levels() {
		lw, lh := layout.LevelSize(level)
		if b := current.Bounds(); b.Dx() != lw || b.Dy() != lh {
			current = imaging.Resize(current, lw, lh, imaging.Box)
		}
		levelDir := filepath.Join(tilesDir, strconv.Itoa(level))
		if err := os.MkdirAll(levelDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", levelDir, err)
		}
		if err := w.writeLevel(current, layout.Tiles(level), levelDir); err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
		w.Logger.Debug("level written", "level", level, "width", lw, "height", lh)
	}

	if err := WriteDescriptor(files_manager.DescriptorPath(base), NewDescriptor(layout, FormatJPEG)); err != nil {
		return fmt.Errorf("error writing descriptor: %w", err)
	}
	return nil
}

func (w *Writer) workers() int {
	if w.Options.Workers > 0 {
		return w.Options.Workers
	}
	return max(runtime.NumCPU()-1, 1)
}

func (w *Writer) writeLevel(levelImg image.Image, tiles []Tile, dir string) error {
	return runBounded(len(tiles), w.workers(), func(i int) error {
		tile := tiles[i]
		return w.writeTile(levelImg, tile, filepath.Join(dir, tile.Name(FormatJPEG)))
	})
}

// runBounded calls fn for 0..n-1 with at most workers goroutines alive and
// returns the first error reported.
func runBounded(n, workers int, fn func(i int) error) error {
	sem := make(chan struct{}, max(workers, 1))
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			errs <- fn(i)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeTile(levelImg image.Image, tile Tile, path string) error {
	sub := imaging.Crop(levelImg, tile.Rect)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create tile: %w", err)
	}
	if err := imaging.Encode(f, sub, imaging.JPEG, imaging.JPEGQuality(w.Options.Quality)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode tile %s: %w", path, err)
	}
	return f.Close()
}
