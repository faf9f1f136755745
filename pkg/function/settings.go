package function

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// SettingTag is the struct tag used by DecodeSettings.
const SettingTag = "setting"

var (
	// ErrInvalidSetting is returned when a setting declaration is malformed.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrDuplicateSetting is returned when two settings share a name.
	ErrDuplicateSetting = errors.New("duplicate setting name")

	// ErrUnknownSetting is returned when a value is supplied for an undeclared setting.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSettingValue is returned when supplied values violate the settings schema.
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// SettingType is the value type of a setting.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingInteger SettingType = "integer"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
)

// Valid reports whether t is a known setting type.
func (t SettingType) Valid() bool {
	switch t {
	case SettingString, SettingInteger, SettingNumber, SettingBoolean:
		return true
	default:
		return false
	}
}

// Setting declares one named, typed configuration entry of a plugin.
type Setting struct {
	Name        string      `json:"name" yaml:"name"`
	Type        SettingType `json:"type" yaml:"type"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Enum        []any       `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum     *float64    `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64    `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// Settings is the immutable set of settings a plugin declares. Names are unique;
// entries are kept sorted by name.
type Settings struct {
	items []Setting
}

// NewSettings builds a Settings set, rejecting empty or duplicate names and
// unknown types.
func NewSettings(items ...Setting) (Settings, error) {
	seen := make(map[string]struct{}, len(items))
	sorted := make([]Setting, 0, len(items))

	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return Settings{}, errors.Wrap(ErrInvalidSetting, "setting name is required")
		}

		if !item.Type.Valid() {
			return Settings{}, errors.Wrapf(ErrInvalidSetting, "setting %q has unknown type %q", name, item.Type)
		}

		if _, dup := seen[name]; dup {
			return Settings{}, errors.Wrapf(ErrDuplicateSetting, "%q", name)
		}

		seen[name] = struct{}{}
		item.Name = name
		item.Enum = slices.Clone(item.Enum)
		sorted = append(sorted, item)
	}

	slices.SortFunc(sorted, func(a, b Setting) int {
		return strings.Compare(a.Name, b.Name)
	})

	return Settings{items: sorted}, nil
}

// Len returns the number of declared settings.
func (s Settings) Len() int {
	return len(s.items)
}

// All returns a copy of the declared settings, sorted by name.
func (s Settings) All() []Setting {
	return slices.Clone(s.items)
}

// Get returns the setting with the given name.
func (s Settings) Get(name string) (Setting, bool) {
	i, found := slices.BinarySearchFunc(s.items, name, func(item Setting, target string) int {
		return strings.Compare(item.Name, target)
	})
	if !found {
		return Setting{}, false
	}

	return s.items[i], true
}

// Schema renders the settings as a JSON Schema object.
func (s Settings) Schema() *jsonschema.Schema {
	props := jsonschema.NewProperties()

	var required []string

	for _, item := range s.items {
		prop := &jsonschema.Schema{
			Type:        string(item.Type),
			Description: item.Description,
			Default:     item.Default,
			Enum:        slices.Clone(item.Enum),
		}

		if item.Minimum != nil {
			prop.Minimum = formatNumber(*item.Minimum)
		}

		if item.Maximum != nil {
			prop.Maximum = formatNumber(*item.Maximum)
		}

		props.Set(item.Name, prop)

		if item.Required {
			required = append(required, item.Name)
		}
	}

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// Resolve fills in defaults for values that were not supplied and validates the
// result against the settings schema. Values for undeclared settings are rejected.
func (s Settings) Resolve(values map[string]any) (map[string]any, error) {
	var unknown []string

	for name := range values {
		if _, ok := s.Get(name); !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		slices.Sort(unknown)

		return nil, errors.Wrapf(ErrUnknownSetting, "%s", strings.Join(unknown, ", "))
	}

	resolved := make(map[string]any, len(s.items))

	for _, item := range s.items {
		if v, ok := values[item.Name]; ok {
			resolved[item.Name] = v

			continue
		}

		if item.Default != nil {
			resolved[item.Name] = item.Default
		}
	}

	if err := s.validate(resolved); err != nil {
		return nil, err
	}

	return resolved, nil
}

func (s Settings) validate(values map[string]any) error {
	raw, err := json.Marshal(s.Schema())
	if err != nil {
		return errors.Wrap(err, "marshaling settings schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(raw),
		gojsonschema.NewGoLoader(values),
	)
	if err != nil {
		return errors.Wrap(err, "validating settings")
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}

	return errors.Wrapf(ErrInvalidSettingValue, "%s", strings.Join(problems, "; "))
}

// DecodeSettings decodes resolved settings into out, which must be a pointer to
// a struct. Fields are matched by their `setting` tag.
func DecodeSettings(values map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          SettingTag,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "creating settings decoder")
	}

	if err := decoder.Decode(values); err != nil {
		return errors.Wrap(err, "decoding settings")
	}

	return nil
}

func formatNumber(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}
