package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTransport struct {
	err  error
	sent []Message
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Deliver(_ context.Context, msg Message) error {
	t.sent = append(t.sent, msg)
	return t.err
}

func TestSendToRoleStampsIDAndTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	transport := &recordingTransport{}
	n := NewNotifier(transport, clock.NewFakeClock(now), zap.NewNop(), nil)

	n.SendToRole(context.Background(), Message{Role: "mozo", Title: "Pedido listo", Body: "Mesa 4"})

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, now, msg.SentAt)
	assert.Equal(t, "mozo", msg.Role)
}

func TestSendToRoleSwallowsTransportFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	lifecycle := metrics.NewLifecycle(reg, metrics.Config{})
	transport := &recordingTransport{err: errors.New("broker down")}
	n := NewNotifier(transport, clock.SystemClock{}, zap.NewNop(), lifecycle)

	assert.NotPanics(t, func() {
		n.SendToRole(context.Background(), Message{Role: "delivery", Title: "Pedido listo"})
	})
	assert.Len(t, transport.sent, 1)
	count, err := testutil.GatherAndCount(reg, "menuya_notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSendToRoleSkipsEmptyRole(t *testing.T) {
	transport := &recordingTransport{}
	n := NewNotifier(transport, nil, nil, nil)

	n.SendToRole(context.Background(), Message{Title: "nobody"})

	assert.Empty(t, transport.sent)
}
