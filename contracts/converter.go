package contracts

import (
	"errors"
	"fmt"
)

var ErrBackendUnavailable = errors.New("backend not compiled into this binary")

const (
	DefaultTileSize = 254
	DefaultOverlap  = 1
	DefaultQuality  = 90
	DefaultDepth    = DepthOneTile
)

// Image is a decoded source image owned by the backend that opened it.
type Image interface {
	Width() int
	Height() int
	Close() error
}

// ImageIO is the whole surface the converter needs from an imaging library.
type ImageIO interface {
	Name() string
	Open(path string) (Image, error)
	// Export writes base+".dzi" and base+"_files/".
	Export(img Image, base string, opts ExportOptions) error
}

type ExportOptions struct {
	TileSize int
	Overlap  int
	Quality  int
	Depth    DepthMode
	Workers  int
}

type ConversionRequest struct {
	InputPath  string
	OutputPath string
	Options    ExportOptions
}

func DefaultRequest(inputPath, outputPath string) ConversionRequest {
	return ConversionRequest{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options: ExportOptions{
			TileSize: DefaultTileSize,
			Overlap:  DefaultOverlap,
			Quality:  DefaultQuality,
			Depth:    DefaultDepth,
		},
	}
}

// Request turns parsed command-line flags into a conversion request.
func (f InputFlags) Request() (ConversionRequest, error) {
	depth, err := ParseDepthMode(f.Depth)
	if err != nil {
		return ConversionRequest{}, err
	}
	return ConversionRequest{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
		Options: ExportOptions{
			TileSize: f.TileSize,
			Overlap:  f.Overlap,
			Quality:  f.Quality,
			Depth:    depth,
			Workers:  f.Workers,
		},
	}, nil
}

// Header is what a backend can tell about an input without tiling it.
type Header struct {
	Width  int
	Height int
	Bands  int
	Pages  int
}

// HeaderReader is implemented by backends that can inspect an input
// cheaply.
type HeaderReader interface {
	Header(path string) (Header, error)
}

// TileSuffix is the libvips save suffix for JPEG tiles at the requested
// quality.
func (o ExportOptions) TileSuffix() string {
	return fmt.Sprintf(".jpeg[Q=%d]", o.Quality)
}
