package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// writeOutput prints v as indented JSON or YAML. YAML goes through JSON
// first so field names match the API.
func writeOutput(w io.Writer, format string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if format != formatYAML && format != "yml" {
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// readInput decodes a JSON or YAML file into v, picking the parser by
// extension.
func readInput(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return decodeInput(filepath.Ext(path), b, v)
}

func decodeInput(ext string, b []byte, v any) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(b, &generic); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
		// Re-encode so JSON tags and custom unmarshalers apply.
		jb, err := json.Marshal(generic)
		if err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
		b = jb
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}
