package function

import (
	"sync"
	"time"
)

// ChannelLog is the reserved channel for human-readable diagnostics.
const ChannelLog = "log"

// Message is one side-channel event emitted by a plugin.
type Message struct {
	Channel string    `json:"channel"`
	Payload string    `json:"payload"`
	Time    time.Time `json:"time"`
}

// Sender is the plugin-facing half of a Bus.
type Sender interface {
	Send(channel, payload string)
}

// Bus is the per-instance side channel from a plugin to its host. Send never
// blocks: messages are queued without bound and the host drains them. Messages
// are delivered in call order.
type Bus struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
	now    func() time.Time
}

// NewBus returns an open Bus.
func NewBus() *Bus {
	return &Bus{
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Send enqueues a message. Sending on a closed bus is a no-op.
func (b *Bus) Send(channel, payload string) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return
	}

	b.queue = append(b.queue, Message{Channel: channel, Payload: payload, Time: b.now()})
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Log sends payload on ChannelLog.
func (b *Bus) Log(payload string) {
	b.Send(ChannelLog, payload)
}

// Drain removes and returns all queued messages in send order.
func (b *Bus) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.queue
	b.queue = nil

	return msgs
}

// Len returns the number of queued messages.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.queue)
}

// Notify returns a channel that receives a value after one or more sends.
// Several sends may coalesce into a single notification.
func (b *Bus) Notify() <-chan struct{} {
	return b.notify
}

// Close stops accepting messages. Queued messages remain drainable.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

// Closed reports whether Close was called.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}
