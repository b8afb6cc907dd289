package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads a design in JSON or YAML form. format is "json" or "yaml".
func Decode(r io.Reader, format string) (Design, error) {
	var d Design
	switch strings.ToLower(format) {
	case "json":
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return Design{}, fmt.Errorf("decode json design: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&d); err != nil {
			return Design{}, fmt.Errorf("decode yaml design: %w", err)
		}
	default:
		return Design{}, fmt.Errorf("unsupported design format %q", format)
	}
	return d, nil
}

// ReadFile loads a design, picking the format from the file extension.
func ReadFile(path string) (Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return Design{}, err
	}
	defer f.Close()
	d, err := Decode(f, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Design{}, fmt.Errorf("%s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d, nil
}

// WriteFile stores a design as JSON or YAML depending on the extension.
func WriteFile(path string, d Design) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
}
