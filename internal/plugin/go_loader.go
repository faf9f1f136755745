package plugin

import (
	goplugin "plugin"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// SymbolName is the symbol a Go plugin must export.
const SymbolName = "Function"

// ErrInvalidSymbol is returned when the exported symbol is not a plugin.
var ErrInvalidSymbol = errors.New("symbol does not implement function.Function")

// GoLoader loads native Go plugins (.so files).
type GoLoader struct {
	allowedDirs []string
	open        func(path string) (goplugin.Symbol, error)
}

// NewGoLoader creates a new Go plugin loader. Plugin paths must resolve into
// one of allowedDirs; an empty list only rejects traversal.
func NewGoLoader(allowedDirs []string) *GoLoader {
	return &GoLoader{
		allowedDirs: allowedDirs,
		open:        lookupFunction,
	}
}

// Load loads a Go plugin from the specified path.
//
//nolint:ireturn // interface return is required by Loader interface
func (l *GoLoader) Load(cfg *config.PluginInstanceConfig) (function.Function, error) {
	if cfg.Path == "" {
		return nil, errors.Wrap(ErrPathRequired, "go plugin")
	}

	if extErr := ValidateExtension(cfg.Path, []string{".so"}); extErr != nil {
		return nil, errors.Wrap(extErr, "invalid Go plugin extension")
	}

	if pathErr := ValidatePath(cfg.Path, l.allowedDirs); pathErr != nil {
		return nil, errors.Wrapf(pathErr, "plugin path validation failed: %s", cfg.Path)
	}

	sym, err := l.open(config.ExpandHome(cfg.Path))
	if err != nil {
		return nil, err
	}

	return FunctionFromSymbol(sym)
}

// Close releases any resources held by the loader.
func (*GoLoader) Close() error {
	// Go plugins cannot be unloaded
	return nil
}

// FunctionFromSymbol converts an exported symbol into a plugin. Accepted forms
// are a variable whose address implements function.Function, a variable of
// interface type function.Function, or a constructor func() function.Function.
//
//nolint:ireturn // interface return is required by Loader interface
func FunctionFromSymbol(sym any) (function.Function, error) {
	switch s := sym.(type) {
	case *function.Function:
		if s == nil || *s == nil {
			return nil, errors.Wrap(ErrInvalidSymbol, "nil interface value")
		}

		return *s, nil
	case func() function.Function:
		fn := s()
		if fn == nil {
			return nil, errors.Wrap(ErrInvalidSymbol, "constructor returned nil")
		}

		return fn, nil
	case function.Function:
		return s, nil
	default:
		return nil, errors.Wrapf(ErrInvalidSymbol, "got %T", sym)
	}
}

func lookupFunction(path string) (goplugin.Symbol, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Go plugin")
	}

	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin does not export %q symbol", SymbolName)
	}

	return sym, nil
}
