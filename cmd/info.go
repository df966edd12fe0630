package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ndpi2dzi/backends"
	"ndpi2dzi/contracts"
	"ndpi2dzi/converter"
	"ndpi2dzi/files_manager"
	"ndpi2dzi/slide"
)

func newInfoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "info INPUT",
		Short: "Print the TIFF/NDPI structure and image header of a slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path := args[0]
			if err := files_manager.CheckInput(path); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			info, err := slide.Probe(path)
			if err != nil {
				logger.Debug("header probe failed", "err", err)
				fmt.Fprintf(out, "%s: not a TIFF-based slide\n", path)
			} else {
				printSlide(out, info)
			}

			backend, err := backends.New(v.GetString("backend"), logger, v.GetInt("workers"))
			if errors.Is(err, contracts.ErrBackendUnavailable) {
				return nil
			}
			if err != nil {
				return err
			}
			defer func() {
				if err := backends.Release(backend); err != nil {
					logger.Warn("backend shutdown failed", "err", err)
					return
				}
				logger.Debug("backend released", "backend", backend.Name())
			}()

			h, err := converter.ReadHeader(backend, path)
			if err != nil {
				return &converter.ConversionError{Stage: converter.StageOpen, Path: path, Cause: err}
			}
			fmt.Fprintf(out, "%s header: %dx%d, %d bands, %d pages\n", backend.Name(), h.Width, h.Height, h.Bands, h.Pages)
			return nil
		},
	}
}

func printSlide(w io.Writer, info *slide.Info) {
	kind := "TIFF"
	if info.IsNDPI() {
		kind = "NDPI"
	}
	fmt.Fprintf(w, "%s: %s, %dx%d\n", info.Path, kind, info.Width(), info.Height())
	if info.Make != "" || info.Model != "" {
		fmt.Fprintf(w, "scanner: %s %s\n", info.Make, info.Model)
	}
	if info.Magnification > 0 {
		fmt.Fprintf(w, "magnification: %gx\n", info.Magnification)
	}
	fmt.Fprintf(w, "pyramid levels: %d of %d directories\n", len(info.Pyramid()), len(info.Levels))
	for _, l := range info.Levels {
		fmt.Fprintf(w, "  ifd %d: %dx%d compression=%d", l.Index, l.Width, l.Height, l.Compression)
		if l.MicronsPerPixelX > 0 {
			fmt.Fprintf(w, " mpp=%.4f", l.MicronsPerPixelX)
		}
		switch {
		case l.SourceLens == -1:
			fmt.Fprint(w, " (macro)")
		case l.SourceLens == -2:
			fmt.Fprint(w, " (focus map)")
		case l.SourceLens > 0:
			fmt.Fprintf(w, " lens=%gx", l.SourceLens)
		}
		fmt.Fprintln(w)
	}
}
