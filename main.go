package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	Version   = "1.0.0"
	BuildTime = "2026-10-18 10:00:00"
	Program   = "skytile"
)

var (
	settings = Default()
	logger   = NewLogger(slog.LevelInfo, "text")

	configFile string
	logLevel   string
	logFormat  string
	debug      bool
)

func init() {
	ExecutionTime = time.Now().Truncate(time.Second).UTC()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := rootCmd()
	err := root.ExecuteContext(ctx)
	Exit(checkError(err, nil))
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               Program,
		Short:             "rank sky map tiles and plan telescope follow-up",
		Long:              helpText,
		Version:           fmt.Sprintf("%s (build: %s)", Version, BuildTime),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	fs := root.PersistentFlags()
	fs.StringVarP(&configFile, "config", "c", "", "load settings from a toml configuration file")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	fs.BoolVar(&debug, "debug", false, "shortcut for --log-level debug")
	fs.StringVar(&settings.IndexDir, "index-dir", settings.IndexDir, "directory with the precomputed tile indexes")
	fs.StringVar(&settings.IndexPrefix, "index-prefix", settings.IndexPrefix, "file name prefix of the tile indexes")
	fs.StringVarP(&settings.Format, "format", "f", settings.Format, "output format (text, json, yaml)")

	root.AddCommand(
		rankCmd(),
		scheduleCmd(),
		areaCmd(),
		sourceCmd(),
		allocateCmd(),
		nightsCmd(),
		detectCmd(),
		rebinCmd(),
		indexCmd(),
		sitesCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration file then applies again the flags given
// on the command line so that they take precedence over the file.
func setup(cmd *cobra.Command, _ []string) error {
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if configFile != "" {
		if err := settings.Load(configFile); err != nil {
			return err
		}
		for n, v := range changed {
			if err := cmd.Flags().Set(n, v); err != nil {
				return badUsage(fmt.Sprintf("%s: %v", n, err))
			}
		}
	}
	level := ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	logger = NewLogger(level, logFormat)
	settings.dump(logger)
	return settings.Validate()
}

func skyMapArg(args []string) (*SkyMap, error) {
	if len(args) > 0 {
		settings.SkyMap = args[0]
	}
	if settings.SkyMap == "" {
		return nil, badUsage("no sky map given")
	}
	m, err := LoadSkyMap(settings.SkyMap)
	if err != nil {
		return nil, err
	}
	logger.Info("sky map loaded", "file", settings.SkyMap, "nside", m.Nside(), "pixels", m.Len(), "total", m.Sum())
	return m, nil
}

// writeValue encodes v for the json and yaml formats, and falls back to
// text for everything else.
func writeValue(w io.Writer, v any, text func(io.Writer) error) error {
	switch strings.ToLower(settings.Format) {
	case FormatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	case FormatYAML:
		e := yaml.NewEncoder(w)
		defer e.Close()
		e.SetIndent(2)
		return e.Encode(v)
	default:
		return text(w)
	}
}
