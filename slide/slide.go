// Package slide reads the TIFF directory chain of whole-slide images,
// including the Hamamatsu NDPI private tags, without decoding pixels.
package slide

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/tiff"
)

// Baseline TIFF tags.
const (
	tagImageWidth     uint16 = 256
	tagImageLength    uint16 = 257
	tagCompression    uint16 = 259
	tagMake           uint16 = 271
	tagModel          uint16 = 272
	tagXResolution    uint16 = 282
	tagYResolution    uint16 = 283
	tagResolutionUnit uint16 = 296
)

// Hamamatsu NDPI private tags.
const (
	TagNDPIFormatFlag uint16 = 65420
	TagNDPISourceLens uint16 = 65421
	TagNDPIReference  uint16 = 65427
)

const (
	resUnitInch       = 2
	resUnitCentimeter = 3
)

// Level is one image file directory.
type Level struct {
	Index       int
	Width       int
	Height      int
	Compression int
	// SourceLens is the NDPI magnification of this directory; -1 marks the
	// macro image and -2 the focus map.
	SourceLens float64
	// MicronsPerPixel is 0 when the resolution tags are absent.
	MicronsPerPixelX float64
	MicronsPerPixelY float64
}

type Info struct {
	Path          string
	Make          string
	Model         string
	Reference     string
	Magnification float64
	ndpi          bool
	Levels        []Level
}

// Probe parses the directory chain of the TIFF file at path.
func Probe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tiff.Parse(f, tiff.DefaultTagSpace, tiff.DefaultFieldTypeSpace)
	if err != nil {
		return nil, fmt.Errorf("not a TIFF file: %w", err)
	}

	info := &Info{Path: path}
	for i, ifd := range t.IFDs() {
		level := Level{
			Index:       i,
			Width:       int(uintField(ifd, tagImageWidth)),
			Height:      int(uintField(ifd, tagImageLength)),
			Compression: int(uintField(ifd, tagCompression)),
		}
		level.MicronsPerPixelX, level.MicronsPerPixelY = micronsPerPixel(ifd)

		if ifd.HasField(TagNDPIFormatFlag) {
			info.ndpi = true
			level.SourceLens = floatField(ifd, TagNDPISourceLens)
		}
		if i == 0 {
			info.Make = asciiField(ifd, tagMake)
			info.Model = asciiField(ifd, tagModel)
			info.Reference = asciiField(ifd, TagNDPIReference)
			info.Magnification = level.SourceLens
		}
		info.Levels = append(info.Levels, level)
	}
	if len(info.Levels) == 0 {
		return nil, fmt.Errorf("no image directories in %s", path)
	}
	return info, nil
}

// IsNDPI reports whether any directory carries the NDPI format flag.
func (i *Info) IsNDPI() bool {
	return i.ndpi
}

func (i *Info) Width() int {
	return i.Levels[0].Width
}

func (i *Info) Height() int {
	return i.Levels[0].Height
}

// Pyramid returns the directories that belong to the scan pyramid, leaving
// out the macro image and focus map of NDPI files.
func (i *Info) Pyramid() []Level {
	levels := make([]Level, 0, len(i.Levels))
	for _, l := range i.Levels {
		if i.ndpi && l.SourceLens < 0 {
			continue
		}
		levels = append(levels, l)
	}
	return levels
}

func micronsPerPixel(ifd tiff.IFD) (float64, float64) {
	x := floatField(ifd, tagXResolution)
	y := floatField(ifd, tagYResolution)
	var perUnit float64
	switch uintField(ifd, tagResolutionUnit) {
	case resUnitCentimeter:
		perUnit = 1e4
	case resUnitInch:
		perUnit = 25.4e3
	default:
		return 0, 0
	}
	var mx, my float64
	if x > 0 {
		mx = perUnit / x
	}
	if y > 0 {
		my = perUnit / y
	}
	return mx, my
}

// Field type IDs from the TIFF 6.0 specification.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

func uintField(ifd tiff.IFD, tag uint16) uint64 {
	if !ifd.HasField(tag) {
		return 0
	}
	f := ifd.GetField(tag)
	b, order := f.Value().Bytes(), f.Value().Order()
	switch f.Type().ID() {
	case typeByte:
		if len(b) >= 1 {
			return uint64(b[0])
		}
	case typeShort:
		if len(b) >= 2 {
			return uint64(order.Uint16(b))
		}
	case typeLong:
		if len(b) >= 4 {
			return uint64(order.Uint32(b))
		}
	}
	return 0
}

func floatField(ifd tiff.IFD, tag uint16) float64 {
	if !ifd.HasField(tag) {
		return 0
	}
	f := ifd.GetField(tag)
	b, order := f.Value().Bytes(), f.Value().Order()
	switch f.Type().ID() {
	case typeRational:
		return rational(b, order, false)
	case typeSRational:
		return rational(b, order, true)
	case typeFloat:
		if len(b) >= 4 {
			return float64(math.Float32frombits(order.Uint32(b)))
		}
	case typeDouble:
		if len(b) >= 8 {
			return math.Float64frombits(order.Uint64(b))
		}
	case typeShort:
		if len(b) >= 2 {
			return float64(int16(order.Uint16(b)))
		}
	case typeLong:
		if len(b) >= 4 {
			return float64(int32(order.Uint32(b)))
		}
	}
	return 0
}

func rational(b []byte, order binary.ByteOrder, signed bool) float64 {
	if len(b) < 8 {
		return 0
	}
	num, den := order.Uint32(b), order.Uint32(b[4:])
	if den == 0 {
		return 0
	}
	if signed {
		return float64(int32(num)) / float64(int32(den))
	}
	return float64(num) / float64(den)
}

func asciiField(ifd tiff.IFD, tag uint16) string {
	if !ifd.HasField(tag) {
		return ""
	}
	f := ifd.GetField(tag)
	if f.Type().ID() != typeASCII {
		return ""
	}
	return strings.TrimRight(string(f.Value().Bytes()), "\x00 ")
}
