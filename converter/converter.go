package converter

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"ndpi2dzi/contracts"
	"ndpi2dzi/files_manager"
	"ndpi2dzi/slide"
)

// Convert opens req.InputPath with backend, exports it as a DZI pyramid next
// to the output base name and writes the completion line to out. It returns
// the descriptor path.
func Convert(backend contracts.ImageIO, req contracts.ConversionRequest, out io.Writer, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = log.Default()
	}
	start := time.Now()
	base := files_manager.OutputBase(req.OutputPath)

	logProbe(logger, req.InputPath)

	logger.Debug("opening image", "backend", backend.Name(), "path", req.InputPath)
	img, err := backend.Open(req.InputPath)
	if err != nil {
		return "", &ConversionError{Stage: StageOpen, Path: req.InputPath, Cause: err}
	}
	defer func() {
		if cerr := img.Close(); cerr != nil {
			logger.Warn("failed to release image", "err", cerr)
		}
	}()

	logger.Debug("exporting pyramid",
		"width", img.Width(), "height", img.Height(), "base", base,
		"tile_size", req.Options.TileSize, "overlap", req.Options.Overlap,
		"quality", req.Options.Quality, "depth", req.Options.Depth)
	if err := backend.Export(img, base, req.Options); err != nil {
		return "", &ConversionError{Stage: StageExport, Path: base, Cause: err}
	}

	descriptor := files_manager.DescriptorPath(base)
	if levels, err := files_manager.ListLevels(base); err == nil && len(levels) > 0 {
		logger.Debug("levels written", "count", len(levels), "min", levels[0], "max", levels[len(levels)-1])
	}
	logger.Debug("conversion finished", "descriptor", descriptor, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "Conversion complete: %s\n", descriptor)
	return descriptor, nil
}

func logProbe(logger *log.Logger, path string) {
	if logger.GetLevel() > log.DebugLevel {
		return
	}
	info, err := slide.Probe(path)
	if err != nil {
		logger.Debug("header probe skipped", "err", err)
		return
	}
	logger.Debug("input header", "ndpi", info.IsNDPI(), "levels", len(info.Levels),
		"width", info.Width(), "height", info.Height(), "magnification", info.Magnification)
}
