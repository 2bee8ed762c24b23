// Package notification fans role-targeted push messages out to the configured
// transport. Delivery is fire-and-forget: failures are logged and counted, never
// returned to the caller.
package notification

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/zap"
)

const deliverTimeout = 3 * time.Second

type Message struct {
	ID     string            `json:"id"`
	Role   string            `json:"role"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sent_at"`
}

// Transport delivers a single message to every device subscribed to its role.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Sender is what the lifecycle services depend on.
type Sender interface {
	SendToRole(ctx context.Context, msg Message)
}

type Notifier struct {
	transport Transport
	clock     clock.Clock
	log       *zap.Logger
	lifecycle *metrics.Lifecycle
}

func NewNotifier(transport Transport, clk clock.Clock, log *zap.Logger, lifecycle *metrics.Lifecycle) *Notifier {
	if transport == nil {
		transport = NoOpTransport{}
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		transport: transport,
		clock:     clk,
		log:       log.Named("notification"),
		lifecycle: lifecycle,
	}
}

func (n *Notifier) SendToRole(ctx context.Context, msg Message) {
	if n == nil || msg.Role == "" {
		return
	}
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = n.clock.Now().UTC()
	}

	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	if err := n.transport.Deliver(deliverCtx, msg); err != nil {
		n.lifecycle.Notification(msg.Role, metrics.ResultFailed)
		n.log.Warn("push delivery failed",
			zap.String("transport", n.transport.Name()),
			zap.String("role", msg.Role),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}
	n.lifecycle.Notification(msg.Role, metrics.ResultOK)
	n.log.Debug("push delivered",
		zap.String("transport", n.transport.Name()),
		zap.String("role", msg.Role),
		zap.String("message_id", msg.ID),
	)
}

type NoOpTransport struct{}

func (NoOpTransport) Name() string { return "none" }

func (NoOpTransport) Deliver(context.Context, Message) error { return nil }
