package plugin

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

const (
	luaDescriptorGlobal = "descriptor"
	luaExecuteGlobal    = "execute"
)

// ErrInvalidLuaPlugin is returned when a script lacks the descriptor table or
// the execute function.
var ErrInvalidLuaPlugin = errors.New("invalid lua plugin")

// LuaLoader loads plugins written in Lua. A script defines a global
// `descriptor` table and a global `execute(ctx)` function:
//
//	descriptor = {
//	  unique_name = "Notes",
//	  version = "1.0",
//	  extensions = { ["Text file"] = ".txt" },
//	}
//
//	function execute(ctx)
//	  local ok, err = launch(ctx.file_path)
//	  if not ok then send("log", err) end
//	  return true
//	end
//
// Scripts get the base, table, string and math libraries plus the host
// functions send(channel, payload) and launch(path).
type LuaLoader struct {
	launcher       exec.Launcher
	allowedDirs    []string
	defaultTimeout time.Duration
}

// NewLuaLoader creates a Lua loader launching through launcher.
func NewLuaLoader(launcher exec.Launcher, allowedDirs []string) *LuaLoader {
	return &LuaLoader{
		launcher:       launcher,
		allowedDirs:    allowedDirs,
		defaultTimeout: defaultExecPluginTimeout,
	}
}

// Load implements Loader.
//
//nolint:ireturn // interface return is required by Loader interface
func (l *LuaLoader) Load(cfg *config.PluginInstanceConfig) (function.Function, error) {
	if cfg.Path == "" {
		return nil, errors.Wrap(ErrPathRequired, "lua plugin")
	}

	if extErr := ValidateExtension(cfg.Path, []string{".lua"}); extErr != nil {
		return nil, errors.Wrap(extErr, "invalid Lua plugin extension")
	}

	if pathErr := ValidatePath(cfg.Path, l.allowedDirs); pathErr != nil {
		return nil, errors.Wrapf(pathErr, "plugin path validation failed: %s", cfg.Path)
	}

	fn := &LuaFunction{
		launcher: l.launcher,
		timeout:  cfg.GetTimeout(l.defaultTimeout),
	}

	fn.state = newLuaState(fn)

	if err := fn.state.DoFile(config.ExpandHome(cfg.Path)); err != nil {
		fn.state.Close()

		return nil, errors.Wrapf(err, "running %s", cfg.Path)
	}

	spec, err := luaDescriptor(fn.state)
	if err != nil {
		fn.state.Close()

		return nil, err
	}

	if fn.state.GetGlobal(luaExecuteGlobal).Type() != lua.LTFunction {
		fn.state.Close()

		return nil, errors.Wrapf(ErrInvalidLuaPlugin, "%s does not define %s()", cfg.Path, luaExecuteGlobal)
	}

	fn.spec = spec

	return fn, nil
}

// Close implements Loader.
func (*LuaLoader) Close() error {
	return nil
}

func newLuaState(fn *LuaFunction) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("send", L.NewFunction(fn.luaSend))
	L.SetGlobal("launch", L.NewFunction(fn.luaLaunch))

	return L
}

func luaDescriptor(L *lua.LState) (function.DescriptorSpec, error) {
	tbl, ok := L.GetGlobal(luaDescriptorGlobal).(*lua.LTable)
	if !ok {
		return function.DescriptorSpec{}, errors.Wrapf(ErrInvalidLuaPlugin, "missing %s table", luaDescriptorGlobal)
	}

	str := func(key string) string {
		v := tbl.RawGetString(key)
		if v.Type() == lua.LTNil {
			return ""
		}

		return v.String()
	}

	spec := function.DescriptorSpec{
		UniqueName:  str("unique_name"),
		DisplayName: str("display_name"),
		Description: str("description"),
		Author:      str("author"),
		Version:     str("version"),
		Extensions:  make(map[string]string),
	}

	if exts, ok := tbl.RawGetString("extensions").(*lua.LTable); ok {
		exts.ForEach(func(k, v lua.LValue) {
			spec.Extensions[k.String()] = v.String()
		})
	}

	if settings, ok := tbl.RawGetString("settings").(*lua.LTable); ok {
		settings.ForEach(func(k, v lua.LValue) {
			entry, ok := v.(*lua.LTable)
			if !ok {
				return
			}

			spec.Settings = append(spec.Settings, function.Setting{
				Name:        k.String(),
				Type:        function.SettingType(entry.RawGetString("type").String()),
				Default:     fromLua(entry.RawGetString("default")),
				Description: lua.LVAsString(entry.RawGetString("description")),
				Required:    lua.LVAsBool(entry.RawGetString("required")),
			})
		})
	}

	return spec, nil
}

// LuaFunction is a plugin backed by a Lua script. The Lua state is not safe
// for concurrent use and is guarded by mu.
type LuaFunction struct {
	function.Base

	mu       sync.Mutex
	state    *lua.LState
	spec     function.DescriptorSpec
	launcher exec.Launcher
	timeout  time.Duration
}

// Initialize implements function.Function.
func (f *LuaFunction) Initialize() bool {
	return f.Setup(f.spec)
}

// Execute implements function.Function. A Lua error is reported on the log
// channel. The call is refused only when execute returns false.
func (f *LuaFunction) Execute(ctx function.Context) bool {
	if !f.Ready() {
		return false
	}

	fc, ok := function.AsFileContext(ctx)
	if !ok {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == nil || f.state.IsClosed() {
		return false
	}

	runCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	f.state.SetContext(runCtx)
	defer f.state.RemoveContext()

	err := f.state.CallByParam(lua.P{
		Fn:      f.state.GetGlobal(luaExecuteGlobal),
		NRet:    1,
		Protect: true,
	}, f.contextTable(fc))
	if err != nil {
		f.Log("lua error: " + err.Error())

		return true
	}

	ret := f.state.Get(-1)
	f.state.Pop(1)

	return ret != lua.LFalse
}

// Destroy implements function.Function.
func (f *LuaFunction) Destroy() bool {
	f.mu.Lock()

	if f.state != nil && !f.state.IsClosed() {
		f.state.Close()
	}

	f.mu.Unlock()

	return f.Base.Destroy()
}

func (f *LuaFunction) contextTable(fc *function.FileContext) *lua.LTable {
	L := f.state
	tbl := L.NewTable()

	L.SetField(tbl, "kind", lua.LString(function.KindFile))
	L.SetField(tbl, "file_path", lua.LString(fc.FilePath))
	L.SetField(tbl, "parameters", lua.LString(fc.Parameters))

	settings := L.NewTable()
	for k, v := range fc.Settings {
		L.SetField(settings, k, toLua(L, v))
	}

	L.SetField(tbl, "settings", settings)

	return tbl
}

// luaSend implements send(channel, payload).
func (f *LuaFunction) luaSend(L *lua.LState) int {
	channel := L.CheckString(1)
	payload := L.CheckString(2)

	f.Send(channel, payload)

	return 0
}

// luaLaunch implements launch(path). It returns true, or nil and a message.
func (f *LuaFunction) luaLaunch(L *lua.LState) int {
	path := L.CheckString(1)

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	abs, err := filepath.Abs(path)
	if err == nil {
		err = f.launcher.Launch(ctx, exec.Target{Path: path, Dir: filepath.Dir(abs)})
	}

	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))

		return 2
	}

	L.Push(lua.LTrue)

	return 1
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}

		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			L.SetField(tbl, k, toLua(L, item))
		}

		return tbl
	default:
		return lua.LNil
	}
}

func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		if f := float64(val); f == float64(int64(f)) {
			return int64(f)
		}

		return float64(val)
	default:
		return nil
	}
}
