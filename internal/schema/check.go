package schema

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is one place where a config document breaks the schema.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Description
}

// Check validates doc, a decoded config file, against the generated schema.
// Unknown keys are reported, which the config loader silently drops.
func Check(doc map[string]any) ([]Violation, error) {
	s := Generate()

	// gojsonschema reads drafts up to 7; the 2020-12 URI is dropped and the
	// $defs references still resolve as JSON pointers into the document.
	s.Version = ""
	s.ID = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling schema to JSON")
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(raw), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, errors.Wrap(err, "validating against schema")
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, Violation{Field: e.Field(), Description: e.Description()})
	}

	sort.Slice(violations, func(i, j int) bool { return violations[i].String() < violations[j].String() })

	return violations, nil
}

// CheckFile decodes the TOML file at path and runs Check on it.
func CheckFile(path string) ([]Violation, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is given on the command line
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "invalid TOML in %s", path)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	return Check(doc)
}
