package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

var (
	durationType   = reflect.TypeFor[config.Duration]()
	pluginTypeType = reflect.TypeFor[config.PluginType]()
)

// CustomDecoderConfig is the mapstructure setup koanf decodes with. TOML,
// environment variables and flags hand over durations as strings ("30d",
// "5s") or raw nanoseconds, and plugin types in any case.
func CustomDecoderConfig() *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(decodeConfigValue),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
	}
}

func decodeConfigValue(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case durationType:
		return toDuration(data)
	case pluginTypeType:
		if s, ok := data.(string); ok {
			// unknown names pass through for the Validator to report
			return config.PluginType(strings.ToLower(strings.TrimSpace(s))), nil
		}
	}

	return data, nil
}

func toDuration(data any) (any, error) {
	switch v := data.(type) {
	case string:
		d, err := config.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding duration %q", v)
		}

		return d, nil
	case int64:
		return config.Duration(v), nil
	case int:
		return config.Duration(v), nil
	case float64:
		return config.Duration(v), nil
	case time.Duration:
		return config.Duration(v), nil
	default:
		return data, nil
	}
}
