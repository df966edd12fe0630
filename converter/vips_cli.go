package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"ndpi2dzi/contracts"
)

// VipsCLI drives the libvips command-line tools instead of linking the
// library: "vipsheader" opens, "vips dzsave" exports.
type VipsCLI struct {
	VipsBin   string
	HeaderBin string
	logger    *log.Logger
}

type cliImage struct {
	path   string
	width  int
	height int
}

func NewVipsCLI(logger *log.Logger) *VipsCLI {
	if logger == nil {
		logger = log.Default()
	}
	return &VipsCLI{
		VipsBin:   "vips",
		HeaderBin: "vipsheader",
		logger:    logger,
	}
}

func (v *VipsCLI) Name() string { return "vips-cli" }

func (v *VipsCLI) Open(path string) (contracts.Image, error) {
	width, err := v.headerField(path, "width")
	if err != nil {
		return nil, err
	}
	height, err := v.headerField(path, "height")
	if err != nil {
		return nil, err
	}
	return &cliImage{path: path, width: width, height: height}, nil
}

func (v *VipsCLI) Export(img contracts.Image, base string, opts contracts.ExportOptions) error {
	ci, ok := img.(*cliImage)
	if !ok {
		return fmt.Errorf("image was not opened by the %s backend", v.Name())
	}
	_, err := v.run(v.VipsBin, DzsaveArgs(ci.path, base, opts)...)
	return err
}

// DzsaveArgs builds the "vips dzsave" argument list for one export.
func DzsaveArgs(input, base string, opts contracts.ExportOptions) []string {
	return []string{
		"dzsave", input, base,
		"--suffix", opts.TileSuffix(),
		"--tile-size", strconv.Itoa(opts.TileSize),
		"--overlap", strconv.Itoa(opts.Overlap),
		"--depth", string(opts.Depth),
	}
}

func (v *VipsCLI) Header(path string) (contracts.Header, error) {
	h := contracts.Header{}
	fields := []struct {
		name string
		dst  *int
	}{
		{"width", &h.Width},
		{"height", &h.Height},
		{"bands", &h.Bands},
		{"n-pages", &h.Pages},
	}
	for _, f := range fields {
		n, err := v.headerField(path, f.name)
		if err != nil {
			if f.name == "n-pages" {
				continue
			}
			return contracts.Header{}, err
		}
		*f.dst = n
	}
	return h, nil
}

func (v *VipsCLI) headerField(path, field string) (int, error) {
	out, err := v.run(v.HeaderBin, "-f", field, path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected %s header %q: %w", field, out, err)
	}
	return n, nil
}

// run executes bin and turns a non-zero exit into an error carrying the
// tool's stderr.
func (v *VipsCLI) run(bin string, args ...string) (string, error) {
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	v.logger.Debug("exec", "cmd", cmd.String())
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", errors.New(msg)
			}
		}
		return "", fmt.Errorf("%s failed: %w", bin, err)
	}
	return stdout.String(), nil
}

func (i *cliImage) Width() int   { return i.width }
func (i *cliImage) Height() int  { return i.height }
func (i *cliImage) Close() error { return nil }
