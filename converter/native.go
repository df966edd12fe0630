package converter

import (
	"fmt"
	"image"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"ndpi2dzi/contracts"
	"ndpi2dzi/dzi"
)

// NativeIO decodes with Go image decoders and tiles with the dzi package.
// It handles TIFF, PNG, JPEG, GIF, BMP and WebP; JPEG-compressed NDPI strips
// need the vips backend.
type NativeIO struct {
	logger *log.Logger
}

type nativeImage struct {
	img image.Image
}

func NewNativeIO(logger *log.Logger) *NativeIO {
	if logger == nil {
		logger = log.Default()
	}
	return &NativeIO{logger: logger}
}

func (n *NativeIO) Name() string { return "native" }

func (n *NativeIO) Open(path string) (contracts.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	return &nativeImage{img: img}, nil
}

func (n *NativeIO) Export(img contracts.Image, base string, opts contracts.ExportOptions) error {
	ni, ok := img.(*nativeImage)
	if !ok {
		return fmt.Errorf("image was not opened by the %s backend", n.Name())
	}
	if ni.img == nil {
		return fmt.Errorf("image already closed")
	}
	return dzi.NewWriter(opts, n.logger).Write(ni.img, base)
}

func (i *nativeImage) Width() int  { return i.img.Bounds().Dx() }
func (i *nativeImage) Height() int { return i.img.Bounds().Dy() }

func (i *nativeImage) Close() error {
	i.img = nil
	return nil
}
