//go:build cgo && !novips
// +build cgo,!novips

package libvips

/*
#cgo pkg-config: vips

#include <stdlib.h>
#include <vips/vips.h>

// vips_image_new_from_file and vips_dzsave are variadic; cgo cannot call
// them directly.
static VipsImage* ndpi_open(const char* path) {
    return vips_image_new_from_file(path, NULL);
}

static int ndpi_dzsave(VipsImage* in, const char* base, const char* suffix,
                       int tile_size, int overlap, const char* depth)
{
    int depth_value = vips_enum_from_nick("dzsave", VIPS_TYPE_FOREIGN_DZ_DEPTH, depth);
    if (depth_value < 0) {
        return -1;
    }
    return vips_dzsave(in, base,
        "suffix", suffix,
        "tile_size", tile_size,
        "overlap", overlap,
        "depth", depth_value,
        NULL);
}

static int ndpi_width(VipsImage* im)  { return vips_image_get_width(im); }
static int ndpi_height(VipsImage* im) { return vips_image_get_height(im); }
static void ndpi_unref(VipsImage* im) { g_object_unref(im); }
*/
import "C"
import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/davidbyttow/govips/v2/vips"

	"ndpi2dzi/contracts"
)

// libvips keeps one process-wide error buffer.
var vipsMutex sync.Mutex

// IO binds libvips: govips owns startup, shutdown and log routing, the cgo
// helpers above issue the open and dzsave calls.
type IO struct {
	logger *log.Logger
}

type vipsImage struct {
	ref *C.VipsImage
}

// New starts libvips. workers caps libvips' thread pool; 0 keeps its default.
func New(logger *log.Logger, workers int) (contracts.ImageIO, error) {
	if logger == nil {
		logger = log.Default()
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logger.Error(msg, "domain", domain)
		case vips.LogLevelWarning:
			logger.Warn(msg, "domain", domain)
		default:
			logger.Debug(msg, "domain", domain)
		}
	}, vips.LogLevelWarning)

	cfg := &vips.Config{}
	if workers > 0 {
		cfg.ConcurrencyLevel = workers
	}
	vips.Startup(cfg)
	return &IO{logger: logger}, nil
}

func (v *IO) Name() string { return "vips" }

func (v *IO) Open(path string) (contracts.Image, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	vipsMutex.Lock()
	defer vipsMutex.Unlock()

	ref := C.ndpi_open(cPath)
	if ref == nil {
		return nil, takeVipsError("vips_image_new_from_file failed")
	}
	return &vipsImage{ref: ref}, nil
}

func (v *IO) Export(img contracts.Image, base string, opts contracts.ExportOptions) error {
	vi, ok := img.(*vipsImage)
	if !ok {
		return fmt.Errorf("image was not opened by the %s backend", v.Name())
	}
	if vi.ref == nil {
		return errors.New("image already closed")
	}

	cBase := C.CString(base)
	defer C.free(unsafe.Pointer(cBase))
	cSuffix := C.CString(opts.TileSuffix())
	defer C.free(unsafe.Pointer(cSuffix))
	cDepth := C.CString(string(opts.Depth))
	defer C.free(unsafe.Pointer(cDepth))

	vipsMutex.Lock()
	defer vipsMutex.Unlock()

	rc := C.ndpi_dzsave(vi.ref, cBase, cSuffix, C.int(opts.TileSize), C.int(opts.Overlap), cDepth)
	if rc != 0 {
		return takeVipsError(fmt.Sprintf("vips_dzsave failed with code %d", int(rc)))
	}
	return nil
}

// Header reads image properties through govips without decoding pixels.
func (v *IO) Header(path string) (contracts.Header, error) {
	ref, err := vips.NewImageFromFile(path)
	if err != nil {
		return contracts.Header{}, err
	}
	defer ref.Close()
	return contracts.Header{
		Width:  ref.Width(),
		Height: ref.Height(),
		Bands:  ref.Bands(),
		Pages:  ref.Pages(),
	}, nil
}

// Close shuts libvips down; the backend is unusable afterwards.
func (v *IO) Close() error {
	vips.Shutdown()
	return nil
}

func (i *vipsImage) Width() int  { return int(C.ndpi_width(i.ref)) }
func (i *vipsImage) Height() int { return int(C.ndpi_height(i.ref)) }

func (i *vipsImage) Close() error {
	if i.ref != nil {
		C.ndpi_unref(i.ref)
		i.ref = nil
	}
	return nil
}

// takeVipsError drains the libvips error buffer. Callers hold vipsMutex.
func takeVipsError(fallback string) error {
	msg := strings.TrimSpace(C.GoString(C.vips_error_buffer()))
	C.vips_error_clear()
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}
