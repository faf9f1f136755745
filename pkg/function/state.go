package function

//go:generate enumer -type=State -trimprefix=State -transform=lower -json -text
//go:generate go run github.com/smykla-skalski/launchkit/tools/enumerfix state_enumer.go

// State is the lifecycle state of a plugin instance.
type State int

const (
	// StateUninitialized is the state of a freshly constructed plugin.
	StateUninitialized State = iota
	// StateInitialized is reached after a successful Initialize.
	StateInitialized
	// StateActive is an initialized plugin the host has enabled.
	StateActive
	// StateDestroyed is terminal.
	StateDestroyed
)

// Executable reports whether Execute may be serviced in this state.
func (i State) Executable() bool {
	return i == StateInitialized || i == StateActive
}
