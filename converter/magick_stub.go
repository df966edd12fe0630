//go:build !magick
// +build !magick

package converter

import (
	"github.com/charmbracelet/log"

	"ndpi2dzi/contracts"
)

func NewMagickIO(logger *log.Logger) (contracts.ImageIO, error) {
	return nil, contracts.ErrBackendUnavailable
}
