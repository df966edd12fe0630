package converter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndpi2dzi/contracts"
	"ndpi2dzi/dzi"
)

// fakeIO implements contracts.ImageIO and records what it was asked to do.
type fakeIO struct {
	openErr   error
	exportErr error

	opened     string
	exportBase string
	exportOpts contracts.ExportOptions
	closed     bool
}

type fakeImage struct {
	io *fakeIO
}

func (f *fakeIO) Name() string { return "fake" }

func (f *fakeIO) Open(path string) (contracts.Image, error) {
	f.opened = path
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeImage{io: f}, nil
}

func (f *fakeIO) Export(img contracts.Image, base string, opts contracts.ExportOptions) error {
	f.exportBase = base
	f.exportOpts = opts
	return f.exportErr
}

func (i *fakeImage) Width() int   { return 10 }
func (i *fakeImage) Height() int  { return 10 }
func (i *fakeImage) Close() error { i.io.closed = true; return nil }

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		io         *fakeIO
		wantBase   string
		wantStage  Stage
		wantErrMsg string
		wantOut    string
	}{
		{
			name:     "success reports descriptor",
			output:   "out",
			io:       &fakeIO{},
			wantBase: "out",
			wantOut:  "Conversion complete: out.dzi\n",
		},
		{
			name:     "dzi suffix is stripped",
			output:   "out.dzi",
			io:       &fakeIO{},
			wantBase: "out",
			wantOut:  "Conversion complete: out.dzi\n",
		},
		{
			name:       "open failure names input",
			output:     "out",
			io:         &fakeIO{openErr: errors.New("is not a known file format")},
			wantStage:  StageOpen,
			wantErrMsg: "Failed to open 'slide.ndpi': is not a known file format",
		},
		{
			name:       "export failure",
			output:     "out",
			io:         &fakeIO{exportErr: errors.New("Q should be in range [1, 100]")},
			wantBase:   "out",
			wantStage:  StageExport,
			wantErrMsg: "Failed to save DZI: Q should be in range [1, 100]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			req := contracts.DefaultRequest("slide.ndpi", tt.output)

			descriptor, err := Convert(tt.io, req, &out, quietLogger())

			assert.Equal(t, "slide.ndpi", tt.io.opened)
			assert.Equal(t, tt.wantBase, tt.io.exportBase)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				assert.True(t, IsStage(err, tt.wantStage))
				assert.Empty(t, out.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase+".dzi", descriptor)
			assert.Equal(t, tt.wantOut, out.String())
			assert.True(t, tt.io.closed, "image handle released")
		})
	}
}

func TestConvertPassesOptionsVerbatim(t *testing.T) {
	backend := &fakeIO{}
	req := contracts.DefaultRequest("in.ndpi", "out")
	req.Options = contracts.ExportOptions{TileSize: 0, Overlap: -3, Quality: 250, Depth: contracts.DepthOne}

	_, err := Convert(backend, req, &bytes.Buffer{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, req.Options, backend.exportOpts)
}

func TestConvertClosesHandleOnExportFailure(t *testing.T) {
	backend := &fakeIO{exportErr: errors.New("disk full")}
	_, err := Convert(backend, contracts.DefaultRequest("in.ndpi", "out"), &bytes.Buffer{}, quietLogger())

	require.Error(t, err)
	assert.True(t, backend.closed)
	assert.ErrorContains(t, errors.Unwrap(err), "disk full")
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "slide.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestConvertNativeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir, 600, 400)
	output := filepath.Join(dir, "out.dzi")

	var out bytes.Buffer
	descriptor, err := Convert(NewNativeIO(quietLogger()), contracts.DefaultRequest(input, output), &out, quietLogger())
	require.NoError(t, err)

	base := filepath.Join(dir, "out")
	assert.Equal(t, base+".dzi", descriptor)
	assert.Equal(t, "Conversion complete: "+base+".dzi\n", out.String())

	d, err := dzi.ReadDescriptor(descriptor)
	require.NoError(t, err)
	assert.Equal(t, 600, d.Size.Width)
	assert.Equal(t, 254, d.TileSize)
	assert.Equal(t, 1, d.Overlap)
	assert.DirExists(t, base+"_files")
	assert.NoFileExists(t, filepath.Join(dir, "out.dzi.dzi"))

	tile, err := imaging.Open(filepath.Join(base+"_files", "10", "1_0.jpeg"))
	require.NoError(t, err)
	assert.Equal(t, 254+2, tile.Bounds().Dx(), "interior column is tile_size + 2*overlap wide")
}

func TestConvertNativeUndecodableInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.ndpi")
	require.NoError(t, os.WriteFile(input, []byte("not an image at all"), 0o644))

	_, err := Convert(NewNativeIO(quietLogger()), contracts.DefaultRequest(input, filepath.Join(dir, "out")), &bytes.Buffer{}, quietLogger())

	require.Error(t, err)
	assert.True(t, IsStage(err, StageOpen))
	assert.Contains(t, err.Error(), "Failed to open '"+input+"'")
	assert.NoFileExists(t, filepath.Join(dir, "out.dzi"))
	assert.NoDirExists(t, filepath.Join(dir, "out_files"))
}

func TestConvertNativeQualityOutOfRange(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir, 50, 50)
	req := contracts.DefaultRequest(input, filepath.Join(dir, "out"))
	req.Options.Quality = 101

	_, err := Convert(NewNativeIO(quietLogger()), req, &bytes.Buffer{}, quietLogger())

	require.Error(t, err)
	assert.True(t, IsStage(err, StageExport))
	assert.Contains(t, err.Error(), "Failed to save DZI:")
}
