// Package schema derives the JSON Schema of launchkit config files from the
// config types and checks documents against it.
package schema

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

const (
	draft = "https://json-schema.org/draft/2020-12/schema"
	title = "launchkit configuration"

	// SchemaURL is where the published config schema lives.
	SchemaURL = "https://raw.githubusercontent.com/smykla-skalski/launchkit/main/launchkit.schema.json"
)

// Generate reflects config.Config into a schema. Property names follow the
// toml tags, and unknown properties are rejected everywhere except in plugin
// settings.
func Generate() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "toml",
	}

	s := r.Reflect(&config.Config{})
	s.Version = draft
	s.Title = title

	return s
}

// GenerateJSON encodes Generate as JSON ending in a newline, pretty-printed
// when indent is set.
func GenerateJSON(indent bool) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if indent {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(Generate()); err != nil {
		return nil, errors.Wrap(err, "marshaling schema to JSON")
	}

	return buf.Bytes(), nil
}

// SchemaDirective returns the Taplo comment binding a TOML file to the
// published schema.
func SchemaDirective() string {
	return "#:schema " + SchemaURL
}
