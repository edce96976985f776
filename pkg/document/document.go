// Package document reads and writes node graphs as JSON or YAML documents.
//
// A document names nodes by class and carries their properties as JSON. Links
// refer to pins either by ID or as "NodeName.pinName", where the pin is looked
// up among outputs for "from" and inputs for "to".
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Document is one graph and its nested graphs.
type Document struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	Nodes     []NodeDoc  `json:"nodes"`
	Links     []LinkDoc  `json:"links,omitempty"`
	SubGraphs []Document `json:"subgraphs,omitempty"`
}

// NodeDoc describes a node. Pins lists overrides for the pins the class
// allocates, plus extra pins when a category is given.
type NodeDoc struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Class      string          `json:"class"`
	Properties json.RawMessage `json:"properties,omitempty"`
	X          int             `json:"x,omitempty"`
	Y          int             `json:"y,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	Enabled    string          `json:"enabled,omitempty"`
	Pins       []PinDoc        `json:"pins,omitempty"`
}

// PinDoc overrides or adds a pin.
type PinDoc struct {
	Name          string `json:"name"`
	Direction     string `json:"direction,omitempty"`
	ID            string `json:"id,omitempty"`
	Category      string `json:"category,omitempty"`
	SubCategory   string `json:"sub_category,omitempty"`
	Object        string `json:"object,omitempty"`
	Container     string `json:"container,omitempty"`
	ValueCategory string `json:"value_category,omitempty"`
	Reference     bool   `json:"reference,omitempty"`
	Default       string `json:"default,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
}

// LinkDoc joins an output pin to an input pin.
type LinkDoc struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Format selects the encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat guesses the encoding from the first non-blank byte.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// FormatForPath picks the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes data, validates it against the document schema and returns
// the typed document. An empty format is detected from the content.
func Parse(data []byte, format Format) (*Document, error) {
	if format == "" {
		format = DetectFormat(data)
	}
	raw, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "decode document: %s", err.Error()).WithCause(err)
	}
	return &doc, nil
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(data, FormatForPath(path))
}

// Encode renders doc. JSON output is indented; YAML keeps the JSON key names.
func Encode(doc *Document, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if format != FormatYAML {
		return data, nil
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode document as yaml: %w", err)
	}
	return out, nil
}

// toJSON converts YAML input into the equivalent JSON so both encodings share
// one schema and one decoder.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			var v any
			err := json.Unmarshal(data, &v)
			return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "invalid JSON document: %v", err).WithCause(err)
		}
		return data, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "invalid YAML document: %s", err.Error()).WithCause(err)
		}
		out, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "convert YAML document: %s", err.Error()).WithCause(err)
		}
		return out, nil
	}
	return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "unknown document format %q", format)
}

// normalizeYAML turns map[any]any, which JSON cannot encode, into
// map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeYAML(e)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		for i, e := range val {
			val[i] = normalizeYAML(e)
		}
		return val
	default:
		return v
	}
}
