//go:build !cgo || novips
// +build !cgo novips

package libvips

import (
	"github.com/charmbracelet/log"

	"ndpi2dzi/contracts"
)

func New(logger *log.Logger, workers int) (contracts.ImageIO, error) {
	return nil, contracts.ErrBackendUnavailable
}
