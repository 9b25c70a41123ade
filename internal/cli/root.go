// Package cli provides the gork command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gork-labs/gork/internal/config"
	"github.com/gork-labs/gork/internal/logging"
	"github.com/gork-labs/gork/internal/models"
	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

// app carries the state shared by the subcommands once the root command has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	format     string

	cfg    config.Config
	logger zerolog.Logger
	reg    *polymorph.Registry
	codec  *polymorph.Codec
}

// Execute creates and runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the gork command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "gork",
		Short:        "Polymorphic document codec tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to .gork.yml or .toml config file")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.format, "format", "json", "Wire format: json, jsonc, yaml, cbor or msgpack")

	rootCmd.AddCommand(
		newServeCommand(a),
		newConvertCommand(a),
		newSchemaCommand(a),
		newValidateCommand(a),
	)
	return rootCmd
}

// load reads the config file and applies the flags the user set on top of it.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}

	reg, err := models.Registry()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.reg = reg
	a.codec = polymorph.NewCodec(reg, cfg.CodecOptions()...)
	return nil
}

// lookupType finds a registered type by qualified or short name.
func (a *app) lookupType(name string) (*polymorph.Type, error) {
	if t, ok := a.reg.LookupName(name); ok {
		return t, nil
	}
	var found *polymorph.Type
	for _, t := range a.reg.Types() {
		if t.Name() != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("type name %q is ambiguous: %s or %s", name, found, t)
		}
		found = t
	}
	if found == nil {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	return found, nil
}

// readInput reads path, or stdin when path is "" or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path) // #nosec G304
}

// writeOutput writes data to path, or stdout when path is "" or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// formatFor picks the format of a file: the named one when set, else the
// file extension, else fallback.
func formatFor(name, path string, fallback gorkson.Format) (gorkson.Format, error) {
	if name != "" {
		f, ok := gorkson.FormatByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", name)
		}
		return f, nil
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		if f, ok := gorkson.FormatByName(ext); ok {
			return f, nil
		}
	}
	return fallback, nil
}
