package service

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"go-gin-auth-service/internal/core/errs"
)

const (
	EventRegister = "register"
	EventLogin    = "login"
	EventForgot   = "forgot_password"
	EventReset    = "reset_password"
	EventChange   = "change_password"
	EventDelete   = "delete_user"
)

// Metrics 认证事件计数；outcome 为 success 或错误分类（小写）
type Metrics struct {
	events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_events_total", Help: "Count of authentication events by outcome"},
			[]string{"event", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

func (m *Metrics) observe(event string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(errs.KindOf(err)))
	}
	m.events.WithLabelValues(event, outcome).Inc()
}
