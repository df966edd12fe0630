package contracts

import (
	"fmt"
	"strings"
)

type DepthMode string

const (
	DepthOneTile  DepthMode = "onetile"
	DepthOnePixel DepthMode = "onepixel"
	DepthOne      DepthMode = "one"
)

var DepthModes = []DepthMode{DepthOneTile, DepthOnePixel, DepthOne}

// ParseDepthMode matches s case-insensitively against the known depth modes.
func ParseDepthMode(s string) (DepthMode, error) {
	for _, d := range DepthModes {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid depth %q: choose from onetile, onepixel, one", s)
}

func (d DepthMode) String() string {
	return string(d)
}
