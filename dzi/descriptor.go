package dzi

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"ndpi2dzi/contracts"
)

const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

type Descriptor struct {
	XMLName  xml.Name `xml:"http://schemas.microsoft.com/deepzoom/2008 Image"`
	Format   string   `xml:"Format,attr"`
	Overlap  int      `xml:"Overlap,attr"`
	TileSize int      `xml:"TileSize,attr"`
	Size     Size     `xml:"Size"`
}

type Size struct {
	Width  int `xml:"Width,attr"`
	Height int `xml:"Height,attr"`
}

func NewDescriptor(l Layout, format string) Descriptor {
	return Descriptor{
		Format:   format,
		Overlap:  l.Overlap,
		TileSize: l.TileSize,
		Size:     Size{Width: l.Width, Height: l.Height},
	}
}

func (d Descriptor) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding descriptor: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func WriteDescriptor(path string, d Descriptor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	f, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(&d); err != nil {
		return d, fmt.Errorf("decoding %s: %w", path, err)
	}
	return d, nil
}

// Layout rebuilds the pyramid geometry the descriptor was written with.
func (d Descriptor) Layout(depth contracts.DepthMode) Layout {
	return Layout{
		Width:    d.Size.Width,
		Height:   d.Size.Height,
		TileSize: d.TileSize,
		Overlap:  d.Overlap,
		Depth:    depth,
	}
}
