package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ndpi2dzi/backends"
	"ndpi2dzi/contracts"
	"ndpi2dzi/converter"
	"ndpi2dzi/files_manager"
)

// set at build time via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type InputFlags = contracts.InputFlags

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var verbose bool

	root := &cobra.Command{
		Use:   "ndpi2dzi INPUT_NDPI OUTPUT_DZI",
		Short: "Convert NDPI whole-slide images to DZI format",
		Long: `Convert NDPI whole-slide images to DZI format.

Uses libvips for fast, multi-threaded tile generation.

  INPUT_NDPI  Path to the input NDPI file.
  OUTPUT_DZI  Path/name for the output DZI (e.g. "output" -> output.dzi + output_files/).`,
		Args:          cobra.ExactArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return loadConfig(cmd, v, logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, v, args)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("ndpi2dzi %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	pf := root.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("config", "", "config file (default: ndpi2dzi.yaml in . or ~/.config/ndpi2dzi)")
	pf.String("backend", backends.Default, fmt.Sprintf("imaging backend: %s", strings.Join(backends.Names(), ", ")))
	pf.Int("workers", max(runtime.NumCPU()-1, 1), "worker threads for tile generation")

	f := root.Flags()
	f.Int("tile-size", contracts.DefaultTileSize, "Tile size in pixels.")
	f.Int("overlap", contracts.DefaultOverlap, "Tile overlap in pixels.")
	f.IntP("quality", "q", contracts.DefaultQuality, "JPEG quality (1-100).")
	f.String("depth", string(contracts.DefaultDepth), "Pyramid depth: onetile, onepixel, or one.")

	for _, name := range []string{"tile-size", "overlap", "quality", "depth"} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
	for _, name := range []string{"backend", "workers"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(newInfoCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the optional config file and NDPI2DZI_* environment
// variables. Flags set on the command line win over both.
func loadConfig(cmd *cobra.Command, v *viper.Viper, logger *charmlog.Logger) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ndpi2dzi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ndpi2dzi"))
		}
	}

	v.SetEnvPrefix("NDPI2DZI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	logger.Debug("using config file", "path", v.ConfigFileUsed())
	return nil
}

func runConvert(cmd *cobra.Command, v *viper.Viper, args []string) error {
	logger := loggerFromContext(cmd.Context())

	flags := InputFlags{
		InputPath:  args[0],
		OutputPath: args[1],
		Backend:    v.GetString("backend"),
		Depth:      v.GetString("depth"),
		TileSize:   v.GetInt("tile-size"),
		Overlap:    v.GetInt("overlap"),
		Quality:    v.GetInt("quality"),
		Workers:    v.GetInt("workers"),
	}

	if err := files_manager.CheckInput(flags.InputPath); err != nil {
		return fmt.Errorf("Invalid value for 'INPUT_NDPI': %w", err)
	}
	req, err := flags.Request()
	if err != nil {
		return fmt.Errorf("Invalid value for '--depth': %w", err)
	}

	backend, err := backends.New(flags.Backend, logger, flags.Workers)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Release(backend); err != nil {
			logger.Warn("backend shutdown failed", "err", err)
		}
	}()

	p := newProgress(logger)
	if _, err := converter.Convert(backend, req, cmd.OutOrStdout(), logger); err != nil {
		return err
	}
	p.done("pyramid written")
	return nil
}
