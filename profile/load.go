package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a profile file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Load reads and validates the profile at path.
func Load(path string) (*LinearAdditive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a profile.
func Parse(data []byte, format Format) (*LinearAdditive, error) {
	var p LinearAdditive

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q", format)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
