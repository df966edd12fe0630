//go:build magick
// +build magick

package converter

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/gographics/imagick.v2/imagick"

	"ndpi2dzi/contracts"
	"ndpi2dzi/dzi"
)

var magickOnce sync.Once

// MagickIO decodes through ImageMagick's MagickWand and tiles the decoded
// pixels with the dzi package.
type MagickIO struct {
	logger *log.Logger
}

type magickImage struct {
	mw *imagick.MagickWand
}

func NewMagickIO(logger *log.Logger) (contracts.ImageIO, error) {
	if logger == nil {
		logger = log.Default()
	}
	magickOnce.Do(imagick.Initialize)
	return &MagickIO{logger: logger}, nil
}

func (m *MagickIO) Name() string { return "magick" }

func (m *MagickIO) Open(path string) (contracts.Image, error) {
	mw := imagick.NewMagickWand()
	if err := mw.ReadImage(path); err != nil {
		mw.Destroy()
		return nil, err
	}
	// multi-resolution TIFFs decode every directory; keep the first, which
	// is the full-resolution scan
	mw.SetFirstIterator()
	return &magickImage{mw: mw}, nil
}

func (m *MagickIO) Export(img contracts.Image, base string, opts contracts.ExportOptions) error {
	mi, ok := img.(*magickImage)
	if !ok {
		return fmt.Errorf("image was not opened by the %s backend", m.Name())
	}
	if mi.mw == nil {
		return errors.New("image already closed")
	}
	rgba, err := mi.nrgba()
	if err != nil {
		return err
	}
	return dzi.NewWriter(opts, m.logger).Write(rgba, base)
}

func (m *MagickIO) Close() error {
	imagick.Terminate()
	return nil
}

func (i *magickImage) nrgba() (*image.NRGBA, error) {
	w, h := i.mw.GetImageWidth(), i.mw.GetImageHeight()
	px, err := i.mw.ExportImagePixels(0, 0, w, h, "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, fmt.Errorf("error exporting pixels: %w", err)
	}
	buf, ok := px.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected pixel buffer type %T", px)
	}
	return &image.NRGBA{
		Pix:    buf,
		Stride: int(w) * 4,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}, nil
}

func (i *magickImage) Width() int  { return int(i.mw.GetImageWidth()) }
func (i *magickImage) Height() int { return int(i.mw.GetImageHeight()) }

func (i *magickImage) Close() error {
	if i.mw != nil {
		i.mw.Destroy()
		i.mw = nil
	}
	return nil
}
