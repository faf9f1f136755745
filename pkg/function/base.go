package function

import "sync"

// Base provides the lifecycle bookkeeping shared by plugins. Embed it and
// implement Initialize and Execute:
//
//	func (p *MyPlugin) Initialize() bool { return p.Setup(spec) }
//
// Base is safe for concurrent use.
type Base struct {
	mu         sync.Mutex
	state      State
	descriptor Descriptor
	bus        *Bus
	setupErr   error
}

// Setup builds the descriptor from spec, opens the bus and moves the plugin to
// StateInitialized. It returns false when the plugin was already set up or
// destroyed, or when spec is invalid; SetupErr reports the latter.
func (b *Base) Setup(spec DescriptorSpec) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateUninitialized {
		return false
	}

	descriptor, err := NewDescriptor(spec)
	if err != nil {
		b.setupErr = err

		return false
	}

	b.descriptor = descriptor
	b.bus = NewBus()
	b.state = StateInitialized
	b.setupErr = nil

	return true
}

// SetupErr returns the error of the last failed Setup.
func (b *Base) SetupErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setupErr
}

// Ready reports whether Execute may be serviced.
func (b *Base) Ready() bool {
	return b.State().Executable()
}

// State implements Function.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Active implements Function.
func (b *Base) Active() bool {
	return b.State() == StateActive
}

// SetActive implements Function.
func (b *Base) SetActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.Executable() {
		return
	}

	if active {
		b.state = StateActive
	} else {
		b.state = StateInitialized
	}
}

// Descriptor implements Function.
func (b *Base) Descriptor() Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.descriptor
}

// Bus implements Function.
func (b *Base) Bus() *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.bus
}

// Send emits a message on the bus. It is a no-op before Setup.
func (b *Base) Send(channel, payload string) {
	if bus := b.Bus(); bus != nil {
		bus.Send(channel, payload)
	}
}

// Log emits payload on ChannelLog.
func (b *Base) Log(payload string) {
	b.Send(ChannelLog, payload)
}

// Destroy implements Function.
func (b *Base) Destroy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDestroyed {
		return true
	}

	if b.bus != nil {
		b.bus.Close()
	}

	b.state = StateDestroyed

	return true
}

// Load implements Function.
func (*Base) Load() bool { return true }

// Save implements Function.
func (*Base) Save() bool { return true }
