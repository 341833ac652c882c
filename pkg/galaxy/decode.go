package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeTool decodes a tool schema document. Both a full tool object and a
// bare list of inputs are accepted.
func DecodeTool(data []byte) (*Tool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode tool: empty document")
	}
	if trimmed[0] == '[' {
		var inputs []RawParameter
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("decode tool inputs: %w", err)
		}
		return &Tool{Inputs: inputs}, nil
	}
	var tool Tool
	if err := json.Unmarshal(trimmed, &tool); err != nil {
		return nil, fmt.Errorf("decode tool: %w", err)
	}
	return &tool, nil
}

// LoadTool reads and decodes a JSON tool schema from r.
func LoadTool(r io.Reader) (*Tool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tool: %w", err)
	}
	return DecodeTool(data)
}

// ReadToolFile loads a tool schema from a .json, .yaml or .yml file.
func ReadToolFile(path string) (*Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", path, err)
		}
	}
	tool, err := DecodeTool(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tool, nil
}

// FileSource serves a tool schema from a local file. The file is re-read on
// every call so edits are picked up; current values are ignored.
type FileSource struct {
	Path string
}

// ToolSchema implements the schema source contract used by form recompilation.
func (s FileSource) ToolSchema(_ context.Context, ref ToolRef, _ map[string]any) (*Tool, error) {
	tool, err := ReadToolFile(s.Path)
	if err != nil {
		return nil, err
	}
	if tool.ID == "" {
		tool.ID = ref.ID
	}
	return tool, nil
}
