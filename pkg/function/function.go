// Package function provides the public API for launchkit function plugins.
//
// A function plugin acts on a resource, typically a file, on behalf of a
// user-defined function in the host. Plugins declare which file extensions they
// handle, receive a typed execution context per invocation and report problems
// through a side-channel bus instead of failing the call.
//
// Plugins can be delivered in several forms:
//   - Go plugins (.so files) exporting a "Function" symbol
//   - Exec plugins (JSON over stdin/stdout) written in any language
//   - Lua scripts defining a descriptor table and an execute function
//
// Example Go plugin:
//
//	package main
//
//	import "github.com/smykla-skalski/launchkit/pkg/function"
//
//	type Opener struct {
//		function.Base
//	}
//
//	func (o *Opener) Initialize() bool {
//		return o.Setup(function.DescriptorSpec{
//			UniqueName: "Opener",
//			Version:    "1.0.0.0",
//			Extensions: map[string]string{"Text file": ".txt"},
//		})
//	}
//
//	func (o *Opener) Execute(ctx function.Context) bool {
//		fc, ok := function.AsFileContext(ctx)
//		if !o.Ready() || !ok {
//			return false
//		}
//
//		if err := open(fc.FilePath); err != nil {
//			o.Log(err.Error())
//		}
//
//		return true
//	}
//
//	var Function Opener // exported symbol "Function" required for Go plugins
package function

//go:generate mockgen -source=function.go -destination=function_mock.go -package=function

// Function is the contract every plugin implements.
//
// Boolean results are kept at this boundary so plugins built against older
// hosts stay compatible. Execute returns true once the request was accepted,
// even when the action itself failed; such failures are reported as a single
// message on ChannelLog.
type Function interface {
	// Initialize builds the descriptor and bus and moves the plugin from
	// StateUninitialized to StateInitialized. It returns false on setup failure.
	Initialize() bool

	// Descriptor returns the capability metadata built by Initialize.
	Descriptor() Descriptor

	// Bus returns the side channel, or nil before Initialize.
	Bus() *Bus

	// Execute performs the plugin action for ctx. It returns false without any
	// side effect when the plugin is not initialized or ctx is of a kind the
	// plugin does not handle.
	Execute(ctx Context) bool

	// Destroy releases resources and moves the plugin to StateDestroyed.
	// Destroying a destroyed plugin is a no-op returning true.
	Destroy() bool

	// Load restores persisted plugin state.
	Load() bool

	// Save persists plugin state.
	Save() bool

	// State returns the lifecycle state.
	State() State

	// Active reports whether the host enabled the plugin.
	Active() bool

	// SetActive enables or disables the plugin. Ignored unless initialized.
	SetActive(active bool)
}
