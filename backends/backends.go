// Package backends maps backend names to the imaging libraries that can
// open an image and export it as a DZI pyramid.
package backends

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"ndpi2dzi/contracts"
	"ndpi2dzi/converter"
	"ndpi2dzi/libvips"
)

const (
	Vips    = "vips"
	VipsCLI = "vips-cli"
	Native  = "native"
	Magick  = "magick"

	Default = Vips
)

type factory func(logger *log.Logger, workers int) (contracts.ImageIO, error)

var registry = map[string]factory{
	Vips: libvips.New,
	VipsCLI: func(logger *log.Logger, _ int) (contracts.ImageIO, error) {
		return converter.NewVipsCLI(logger), nil
	},
	Native: func(logger *log.Logger, _ int) (contracts.ImageIO, error) {
		return converter.NewNativeIO(logger), nil
	},
	Magick: func(logger *log.Logger, _ int) (contracts.ImageIO, error) {
		return converter.NewMagickIO(logger)
	},
}

// Names lists the accepted backend names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New starts the named backend. Callers hand it back to Release when done.
func New(name string, logger *log.Logger, workers int) (contracts.ImageIO, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q: choose from %v", name, Names())
	}
	b, err := f(logger, workers)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return b, nil
}

// Release shuts down library state held by backends that keep any.
func Release(b contracts.ImageIO) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
