package crashdump

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

const redactedValue = "[REDACTED]"

// minSecretLength is the shortest value checked against secretPrefixes.
const minSecretLength = 16

var sensitiveKey = regexp.MustCompile(`(?i)token|secret|passw(or)?d|key|credential|auth`)

// secretPrefixes mark well-known credential formats: API keys, GitHub and
// Slack tokens, AWS access key IDs and bearer headers.
var secretPrefixes = []string{
	"sk-", "ghp_", "gho_", "ghs_", "ghr_", "AKIA", "xoxb-", "xoxp-", "Bearer ",
}

// Sanitizer redacts secrets from config snapshots and call parameters before
// they are written to a dump.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

func (*Sanitizer) isSensitiveKey(key string) bool {
	return sensitiveKey.MatchString(key)
}

func (*Sanitizer) isSensitiveValue(value string) bool {
	if len(value) < minSecretLength {
		return false
	}

	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}

	return false
}

// SanitizeConfig returns cfg as a generic JSON tree with sensitive entries
// replaced. Plugin settings are free-form, so every level is inspected.
func (s *Sanitizer) SanitizeConfig(cfg *config.Config) map[string]any {
	if cfg == nil {
		return nil
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return map[string]any{"error": "failed to serialize config"}
	}

	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return map[string]any{"error": "failed to deserialize config"}
	}

	return s.redact(tree).(map[string]any) //nolint:forcetypeassert // redact keeps the shape
}

// redact returns v with secrets replaced. Maps and slices are copied.
func (s *Sanitizer) redact(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, value := range v {
			if s.isSensitiveKey(key) {
				out[key] = redactedValue
			} else {
				out[key] = s.redact(value)
			}
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = s.redact(value)
		}

		return out
	case string:
		if s.isSensitiveValue(v) {
			return redactedValue
		}

		return v
	default:
		return v
	}
}

// SanitizeParameters redacts secret-looking words of a parameter string.
// For key=value and --key=value words only the value is replaced. The input
// is returned unchanged, spacing included, when nothing matched.
func (s *Sanitizer) SanitizeParameters(params string) string {
	words := strings.Fields(params)
	changed := false

	for i, word := range words {
		key, value, isPair := strings.Cut(word, "=")

		switch {
		case isPair && (s.isSensitiveKey(strings.TrimLeft(key, "-")) || s.isSensitiveValue(value)):
			words[i] = key + "=" + redactedValue
		case !isPair && s.isSensitiveValue(word):
			words[i] = redactedValue
		default:
			continue
		}

		changed = true
	}

	if !changed {
		return params
	}

	return strings.Join(words, " ")
}
