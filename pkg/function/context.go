package function

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrUnknownContextKind is returned when decoding a context whose kind has no
// known variant.
var ErrUnknownContextKind = errors.New("unknown context kind")

// ContextKind tags the family of an execution context. Plugins compare the tag
// before touching the payload and reject kinds they do not handle.
type ContextKind string

// KindFile tags FileContext.
const KindFile ContextKind = "file"

// Context describes one invocation request. Callers build a fresh value per
// call; plugins must not retain it after Execute returns.
type Context interface {
	Kind() ContextKind
}

// FileContext is the context of file-acting plugins.
type FileContext struct {
	// FilePath is the target resource, absolute or resolvable against the
	// host's working directory.
	FilePath string `json:"file_path"`

	// Parameters is the free-form argument string of the user function.
	Parameters string `json:"parameters,omitempty"`

	// Settings holds the plugin settings resolved by the host.
	Settings map[string]any `json:"settings,omitempty"`
}

// Kind implements Context.
func (*FileContext) Kind() ContextKind {
	return KindFile
}

// AsFileContext returns ctx as a *FileContext when its tag is KindFile and the
// payload has the matching type.
func AsFileContext(ctx Context) (*FileContext, bool) {
	if ctx == nil || ctx.Kind() != KindFile {
		return nil, false
	}

	fc, ok := ctx.(*FileContext)
	if !ok || fc == nil {
		return nil, false
	}

	return fc, true
}

// Envelope is the JSON wire form of a Context.
type Envelope struct {
	Kind ContextKind  `json:"kind"`
	File *FileContext `json:"file,omitempty"`
}

// EncodeContext wraps ctx into its wire envelope.
func EncodeContext(ctx Context) (Envelope, error) {
	if ctx == nil {
		return Envelope{}, errors.Wrap(ErrUnknownContextKind, "nil context")
	}

	if fc, ok := AsFileContext(ctx); ok {
		return Envelope{Kind: KindFile, File: fc}, nil
	}

	return Envelope{}, errors.Wrapf(ErrUnknownContextKind, "%q", ctx.Kind())
}

// DecodeContext unwraps env into the variant selected by its kind.
//
//nolint:ireturn // tagged union
func DecodeContext(env Envelope) (Context, error) {
	switch env.Kind {
	case KindFile:
		if env.File == nil {
			return nil, errors.Wrap(ErrUnknownContextKind, "file envelope without payload")
		}

		return env.File, nil
	default:
		return nil, errors.Wrapf(ErrUnknownContextKind, "%q", env.Kind)
	}
}

// MarshalContext encodes ctx as JSON.
func MarshalContext(ctx Context) ([]byte, error) {
	env, err := EncodeContext(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling context")
	}

	return data, nil
}

// UnmarshalContext decodes a JSON envelope produced by MarshalContext.
//
//nolint:ireturn // tagged union
func UnmarshalContext(data []byte) (Context, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshaling context")
	}

	return DecodeContext(env)
}
