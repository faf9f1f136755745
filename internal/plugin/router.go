package plugin

import (
	"time"

	"github.com/google/uuid"

	"github.com/smykla-skalski/launchkit/pkg/function"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// Diagnostic is a bus message attributed to the instance that sent it.
type Diagnostic struct {
	Plugin     string    `json:"plugin"`
	InstanceID uuid.UUID `json:"instance_id"`
	Channel    string    `json:"channel"`
	Payload    string    `json:"payload"`
	Time       time.Time `json:"time"`
}

// DiagnosticHandler receives messages sent on channels other than "log".
type DiagnosticHandler func(Diagnostic)

// DiagnosticRouter attributes drained bus messages and forwards them. Messages
// on the "log" channel go to the application logger, everything else to the
// optional handler.
type DiagnosticRouter struct {
	logger  logger.Logger
	handler DiagnosticHandler
}

// RouterOption configures a DiagnosticRouter.
type RouterOption func(*DiagnosticRouter)

// WithChannelHandler sets the handler for non-log channels.
func WithChannelHandler(h DiagnosticHandler) RouterOption {
	return func(r *DiagnosticRouter) {
		r.handler = h
	}
}

// NewDiagnosticRouter creates a router logging to log.
func NewDiagnosticRouter(log logger.Logger, opts ...RouterOption) *DiagnosticRouter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := &DiagnosticRouter{logger: log}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Route drains bus and returns the attributed messages in send order.
func (r *DiagnosticRouter) Route(plugin string, id uuid.UUID, bus *function.Bus) []Diagnostic {
	if bus == nil {
		return nil
	}

	msgs := bus.Drain()
	if len(msgs) == 0 {
		return nil
	}

	out := make([]Diagnostic, 0, len(msgs))

	for _, msg := range msgs {
		d := Diagnostic{
			Plugin:     plugin,
			InstanceID: id,
			Channel:    msg.Channel,
			Payload:    msg.Payload,
			Time:       msg.Time,
		}

		out = append(out, d)

		if msg.Channel == function.ChannelLog {
			r.logger.Info("plugin diagnostic",
				"plugin", plugin,
				"instance", id.String(),
				"message", msg.Payload,
			)

			continue
		}

		if r.handler != nil {
			r.handler(d)

			continue
		}

		r.logger.Debug("unhandled plugin message",
			"plugin", plugin,
			"instance", id.String(),
			"channel", msg.Channel,
		)
	}

	return out
}
