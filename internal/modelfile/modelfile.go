// Package modelfile loads template models from data files. The format is
// picked from the file extension: .json, .yaml/.yml, .hcl, .star and
// .msgpack/.mp.
package modelfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a model file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHCL      Format = "hcl"
	FormatStarlark Format = "star"
	FormatMsgpack  Format = "msgpack"
)

// FormatFor returns the format for a file name based on its extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	case ".star", ".bzl":
		return FormatStarlark, nil
	case ".msgpack", ".mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported model file extension %q", filepath.Ext(path))
	}
}

// Load reads the model stored in path.
func Load(path string) (map[string]any, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	model, err := Decode(f, format, path)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return model, nil
}

// Decode reads a model in the given format from r. name is used in
// diagnostics.
func Decode(r io.Reader, format Format, name string) (map[string]any, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return decodeJSON(src)
	case FormatYAML:
		return decodeYAML(src)
	case FormatHCL:
		return decodeHCL(src, name)
	case FormatStarlark:
		return decodeStarlark(src, name)
	case FormatMsgpack:
		return decodeMsgpack(src)
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}
}

func decodeJSON(src []byte) (map[string]any, error) {
	model := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return model, nil
}

func decodeYAML(src []byte) (map[string]any, error) {
	model := map[string]any{}
	if err := yaml.Unmarshal(src, &model); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return model, nil
}

// Merge copies every entry of overlay into base and returns base. Nested maps
// are merged recursively; other values in overlay win.
func Merge(base, overlay map[string]any) map[string]any {
	if base == nil {
		base = map[string]any{}
	}
	for k, v := range overlay {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := base[k].(map[string]any); ok {
				base[k] = Merge(existing, sub)
				continue
			}
		}
		base[k] = v
	}
	return base
}
