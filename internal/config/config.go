// Package config loads gork settings from .gork.yml or a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

// DefaultPath is the config file picked up when none is named.
const DefaultPath = ".gork.yml"

// Config holds every setting of the gork tools.
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Codec  CodecConfig  `yaml:"codec" toml:"codec"`
	// Format is the default wire format name (json, yaml, cbor, msgpack).
	Format string    `yaml:"format" toml:"format"`
	Log    LogConfig `yaml:"log" toml:"log"`
}

// ServerConfig configures the sample HTTP server.
type ServerConfig struct {
	Addr  string `yaml:"addr" toml:"addr"`
	Title string `yaml:"title" toml:"title"`
}

// CodecConfig configures the polymorphic codec.
type CodecConfig struct {
	DefaultKey     string `yaml:"defaultKey" toml:"default_key"`
	AllowTypeField bool   `yaml:"allowTypeField" toml:"allow_type_field"`
	TypeField      string `yaml:"typeField" toml:"type_field"`
	// Strict rejects document fields the target type does not declare.
	Strict bool `yaml:"strict" toml:"strict"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// JSON switches from the console writer to JSON lines.
	JSON bool `yaml:"json" toml:"json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", Title: "Items"},
		Codec: CodecConfig{
			DefaultKey: polymorph.DefaultKey,
			TypeField:  polymorph.DefaultTypeField,
		},
		Format: "json",
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path loads DefaultPath when
// it exists and the defaults otherwise. Files ending in .toml are TOML;
// everything else is YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, &cfg)
	} else {
		err = decodeYAML(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

// Validate checks that the settings can be used.
func (c Config) Validate() error {
	if _, ok := gorkson.FormatByName(c.Format); !ok {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if strings.TrimSpace(c.Codec.DefaultKey) == "" {
		return errors.New("config: codec.defaultKey must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

// WireFormat returns the format named by Format, falling back to JSON.
func (c Config) WireFormat() gorkson.Format {
	if f, ok := gorkson.FormatByName(c.Format); ok {
		return f
	}
	return gorkson.JSON
}

// Marshaler returns the document engine configured by the codec settings.
func (c Config) Marshaler() *gorkson.Marshaler {
	return &gorkson.Marshaler{DisallowUnknownFields: c.Codec.Strict}
}

// CodecOptions translates the codec settings into polymorph options.
func (c Config) CodecOptions() []polymorph.Option {
	opts := []polymorph.Option{
		polymorph.WithEngine(c.Marshaler()),
		polymorph.WithDefaultKey(c.Codec.DefaultKey),
	}
	if c.Codec.AllowTypeField {
		opts = append(opts, polymorph.WithTypeField(c.Codec.TypeField))
	}
	return opts
}
