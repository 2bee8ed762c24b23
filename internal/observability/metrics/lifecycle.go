package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Lifecycle counts order and bill state transitions and the side effects they
// fan out to.
type Lifecycle struct {
	orderTransitions   *prometheus.CounterVec
	accountTransitions *prometheus.CounterVec
	recomputes         *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	receipts           *prometheus.CounterVec
}

var (
	lifecycleOnce    sync.Once
	lifecycleMetrics *Lifecycle
)

// LifecycleWithConfig returns the process-wide lifecycle metrics registered on the default registerer.
func LifecycleWithConfig(cfg Config) *Lifecycle {
	lifecycleOnce.Do(func() {
		lifecycleMetrics = NewLifecycle(prometheus.DefaultRegisterer, cfg)
	})
	return lifecycleMetrics
}

// ResetLifecycleForTest resets the lifecycle metrics singleton for tests.
func ResetLifecycleForTest() {
	lifecycleOnce = sync.Once{}
	lifecycleMetrics = nil
}

func NewLifecycle(registerer prometheus.Registerer, cfg Config) *Lifecycle {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "menuya"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"env": environment}

	m := &Lifecycle{
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "order_transitions_total",
			Help:        "Order state transitions by source and target state.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		accountTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "account_transitions_total",
			Help:        "Bill state transitions by source and target state.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "view_recomputes_total",
			Help:        "Subscribed view recomputes by concern and result.",
			ConstLabels: constLabels,
		}, []string{"concern", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "notifications_total",
			Help:        "Role push notifications by role and result.",
			ConstLabels: constLabels,
		}, []string{"role", "result"}),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "receipts_total",
			Help:        "Receipt generations by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}

	registerer.MustRegister(
		m.orderTransitions,
		m.accountTransitions,
		m.recomputes,
		m.notifications,
		m.receipts,
	)
	return m
}

func (m *Lifecycle) OrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Lifecycle) AccountTransition(from, to string) {
	if m == nil {
		return
	}
	m.accountTransitions.WithLabelValues(from, to).Inc()
}

func (m *Lifecycle) Recompute(concern, result string) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(concernLabel(concern), result).Inc()
}

func (m *Lifecycle) Notification(role, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(role, result).Inc()
}

func (m *Lifecycle) Receipt(result string) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(result).Inc()
}

// concernLabel drops the per-role suffix so the label stays low-cardinality.
func concernLabel(concern string) string {
	if idx := strings.Index(concern, ":"); idx > 0 {
		return concern[:idx]
	}
	return concern
}
