// Package project defines the dashboard document: the dataset reference,
// column classification, metric templates and hierarchy levels that make
// up one dashboard, plus loading from YAML and JSON round-tripping for
// persistence.
package project

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/metric"
)

// Document is one dashboard definition. It is the unit of persistence:
// everything the engine needs apart from the row data itself.
type Document struct {
	ID      string                 `json:"id,omitempty" koanf:"id" yaml:"id,omitempty"`
	Name    string                 `json:"name" koanf:"name" yaml:"name"`
	Dataset string                 `json:"dataset" koanf:"dataset" yaml:"dataset"`
	Columns []catalog.ColumnConfig `json:"columns" koanf:"columns" yaml:"columns"`
	Metrics []*metric.Template     `json:"metrics" koanf:"metrics" yaml:"metrics"`
	Levels  []hierarchy.Level      `json:"levels,omitempty" koanf:"levels" yaml:"levels,omitempty"`
}

// Load reads a dashboard document from a YAML file. The dataset path is
// resolved relative to the document's directory when not absolute.
func Load(path string) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load dashboard %s: %w", path, err)
	}

	var doc Document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard %s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = trimExt(filepath.Base(path))
	}
	if doc.Dataset != "" && !filepath.IsAbs(doc.Dataset) {
		doc.Dataset = filepath.Join(filepath.Dir(path), doc.Dataset)
	}
	return &doc, nil
}

// MarshalDocument serializes a document to JSON for persistence. An
// unmodified document re-serializes to equivalent JSON, so store contents
// stay diffable.
func MarshalDocument(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument parses a persisted document.
func UnmarshalDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse stored dashboard: %w", err)
	}
	return &doc, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
