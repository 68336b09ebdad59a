// metrics описывает prometheus-метрики auth-service.
// Все методы безопасны для nil-получателя: без метрик сервис работает так же.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auth"

type Metrics struct {
	verify      *prometheus.CounterVec
	logins      *prometheus.CounterVec
	revocations prometheus.Counter
	httpDur     *prometheus.HistogramVec
}

// New регистрирует метрики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_total",
			Help:      "Token verifications by outcome.",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Login attempts by kind and result.",
		}, []string{"kind", "result"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Tokens added to the revocation registry.",
		}),
		httpDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	reg.MustRegister(m.verify, m.logins, m.revocations, m.httpDur)

	return m
}

// Verify учитывает исход проверки токена ("valid" или причина отказа).
func (m *Metrics) Verify(outcome string) {
	if m == nil {
		return
	}
	m.verify.WithLabelValues(outcome).Inc()
}

// Login учитывает попытку входа.
func (m *Metrics) Login(kind string, ok bool) {
	if m == nil {
		return
	}

	result := "fail"
	if ok {
		result = "ok"
	}
	m.logins.WithLabelValues(kind, result).Inc()
}

// Revoked учитывает успешный отзыв.
func (m *Metrics) Revoked() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

// HTTP учитывает длительность запроса.
func (m *Metrics) HTTP(route, method string, code int, dur time.Duration) {
	if m == nil {
		return
	}
	m.httpDur.WithLabelValues(route, method, strconv.Itoa(code)).Observe(dur.Seconds())
}
