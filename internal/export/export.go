// Package export writes and reads region detection results as JSON or YAML,
// optionally zstd-compressed.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/region-tools-mcp/internal/batch"
	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

// DocumentVersion is written into every exported document.
const DocumentVersion = "1"

// Kind is a serialisation format.
type Kind string

const (
	JSON Kind = "json"
	YAML Kind = "yaml"
)

// Format selects the encoding and compression of an export.
type Format struct {
	Kind     Kind
	Compress bool
}

// Ext returns the file extension matching f.
func (f Format) Ext() string {
	ext := "." + string(f.Kind)
	if f.Compress {
		ext += ".zst"
	}
	return ext
}

// FormatFromPath derives the format from a file name: ".json", ".yaml" or
// ".yml", optionally followed by ".zst".
func FormatFromPath(path string) (Format, error) {
	var f Format
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".zst") {
		f.Compress = true
		name = strings.TrimSuffix(name, ".zst")
	}
	switch filepath.Ext(name) {
	case ".json":
		f.Kind = JSON
	case ".yaml", ".yml":
		f.Kind = YAML
	default:
		return Format{}, fmt.Errorf("cannot infer export format from %q: want .json, .yaml or .yml, optionally with .zst", path)
	}
	return f, nil
}

// Failure records an image that could not be processed.
type Failure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Document is the exported form of one or more detection runs.
type Document struct {
	Version  string                     `json:"version" yaml:"version"`
	Results  []*detection.RegionsResult `json:"results" yaml:"results"`
	Failures []Failure                  `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewDocument wraps results in a versioned document.
func NewDocument(results ...*detection.RegionsResult) *Document {
	return &Document{Version: DocumentVersion, Results: results}
}

// FromBatch collects the results and failures of a batch run in input order.
func FromBatch(items []batch.Item) *Document {
	doc := NewDocument()
	for _, item := range items {
		switch {
		case item.Err != nil:
			doc.Failures = append(doc.Failures, Failure{Path: item.Path, Error: item.Err.Error()})
		case item.Result != nil:
			doc.Results = append(doc.Results, item.Result)
		}
	}
	return doc
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, f Format) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	if !f.Compress {
		return encode(w, doc, f.Kind)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := encode(enc, doc, f.Kind); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}

func encode(w io.Writer, doc *Document, kind Kind) error {
	switch kind {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown export format %q", kind)
	}
	return nil
}

// Read decodes a document from r.
func Read(r io.Reader, f Format) (*Document, error) {
	if f.Compress {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var doc Document
	switch f.Kind {
	case JSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", f.Kind)
	}
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("unsupported document version %q", doc.Version)
	}
	return &doc, nil
}

// WriteFile writes doc to path in the format implied by its extension.
func WriteFile(path string, doc *Document) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(out, doc, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadFile reads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer in.Close()
	return Read(in, f)
}
