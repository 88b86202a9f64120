// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tables loads the hand-authored static data: the canonical symbol
// table, the timeline taxonomy and the source page index. Defaults are
// embedded in the binary; a path overrides them with a YAML, JSON or TOML
// file of the same shape.
package tables

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

//go:embed data/*.yaml
var defaults embed.FS

const (
	symbolsFile   = "data/symbols.yaml"
	taxonomyFile  = "data/taxonomy.yaml"
	pageIndexFile = "data/page_index.yaml"
)

// Symbols loads the symbol table from path, or the embedded default when
// path is empty.
func Symbols(path string) (types.SymbolTable, error) {
	var t types.SymbolTable
	err := load(path, symbolsFile, &t)
	return t, err
}

// Taxonomy loads the timeline taxonomy from path, or the embedded default
// when path is empty.
func Taxonomy(path string) (types.Taxonomy, error) {
	var t types.Taxonomy
	err := load(path, taxonomyFile, &t)
	return t, err
}

// PageIndex loads the source page index from path, or the embedded default
// when path is empty.
func PageIndex(path string) (types.PageIndex, error) {
	var p types.PageIndex
	err := load(path, pageIndexFile, &p)
	return p, err
}

func load(path, embedded string, v any) error {
	if path == "" {
		data, err := defaults.ReadFile(embedded)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", embedded, err)
		}
		return decode(embedded, data, v)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading table %s: %w", path, err)
	}
	return decode(path, data, v)
}

// decode dispatches on the file extension.
func decode(name string, data []byte, v any) error {
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".json":
		err = json.Unmarshal(data, v)
	case ".toml":
		err = toml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported table format %q: use .yaml, .json or .toml", filepath.Ext(name))
	}
	if err != nil {
		return fmt.Errorf("parsing table %s: %w", name, err)
	}
	return nil
}
