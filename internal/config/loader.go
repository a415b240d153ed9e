package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml,
// .yml and .toml.
var ErrUnsupportedFormat = errors.New("config: unsupported config format")

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the file at path, choosing the parser by extension.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (cfg *Config, err error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	return LoadFromReaderWithFormat(file, format)
}

// LoadFromReader parses YAML from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	return LoadFromReaderWithFormat(r, FormatYAML)
}

// LoadFromReaderWithFormat parses r as format. Sections left out of the
// document keep the values from Default.
func LoadFromReaderWithFormat(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(content)))

	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(expanded)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return cfg, nil
}
