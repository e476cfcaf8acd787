// Package metrics метрики Prometheus бота.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder интерфейс сбора метрик для сервисов и use case
type Recorder interface {
	RecordEvent(kind string)
	RecordDuplicateEvent()
	RecordTransition(from, to string)
	RecordReading(tier string)
	RecordFollowup(tier string)
	RecordInterpretation(mode string, fallback bool, duration time.Duration)
	RecordQuotaExceeded(kind string)
	RecordStateConflict()
	RecordTimerFired(purpose string, ok bool)
	RecordPayment(status string)
}

// Collector реализация Recorder на Prometheus
type Collector struct {
	events          *prometheus.CounterVec
	duplicates      prometheus.Counter
	transitions     *prometheus.CounterVec
	readings        *prometheus.CounterVec
	followups       *prometheus.CounterVec
	interpretations *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	quotaExceeded   *prometheus.CounterVec
	stateConflicts  prometheus.Counter
	timersFired     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	httpRequests    *prometheus.HistogramVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_inbound_events_total",
			Help: "Входящие события Messenger по типу",
		}, []string{"kind"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tarot_duplicate_events_total",
			Help: "Повторно доставленные события, отброшенные по mid",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_state_transitions_total",
			Help: "Переходы конечного автомата",
		}, []string{"from", "to"}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_readings_total",
			Help: "Созданные расклады по тарифу",
		}, []string{"tier"}),
		followups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_followups_total",
			Help: "Уточняющие вопросы по тарифу",
		}, []string{"tier"}),
		interpretations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_interpretations_total",
			Help: "Трактовки по режиму и источнику",
		}, []string{"mode", "source"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tarot_interpretation_latency_seconds",
			Help:    "Время получения трактовки",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		quotaExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_quota_exceeded_total",
			Help: "Упор в лимиты",
		}, []string{"kind"}),
		stateConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tarot_state_conflicts_total",
			Help: "Проигранные compare-and-swap",
		}),
		timersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_timers_fired_total",
			Help: "Сработавшие таймеры",
		}, []string{"purpose", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarot_payments_total",
			Help: "Платежи по статусу",
		}, []string{"status"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tarot_http_request_duration_seconds",
			Help:    "Длительность HTTP запросов по маршруту и статусу",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		c.events,
		c.duplicates,
		c.transitions,
		c.readings,
		c.followups,
		c.interpretations,
		c.llmLatency,
		c.quotaExceeded,
		c.stateConflicts,
		c.timersFired,
		c.payments,
		c.httpRequests,
	)

	return c
}

func (c *Collector) RecordEvent(kind string) {
	c.events.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordDuplicateEvent() {
	c.duplicates.Inc()
}

func (c *Collector) RecordTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordReading(tier string) {
	c.readings.WithLabelValues(tier).Inc()
}

func (c *Collector) RecordFollowup(tier string) {
	c.followups.WithLabelValues(tier).Inc()
}

func (c *Collector) RecordInterpretation(mode string, fallback bool, duration time.Duration) {
	source := "llm"
	if fallback {
		source = "fallback"
	}
	c.interpretations.WithLabelValues(mode, source).Inc()
	c.llmLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

func (c *Collector) RecordQuotaExceeded(kind string) {
	c.quotaExceeded.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordStateConflict() {
	c.stateConflicts.Inc()
}

func (c *Collector) RecordTimerFired(purpose string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.timersFired.WithLabelValues(purpose, result).Inc()
}

func (c *Collector) RecordPayment(status string) {
	c.payments.WithLabelValues(status).Inc()
}

// RecordHTTPRequest route это шаблон маршрута gin, а не сырой путь
func (c *Collector) RecordHTTPRequest(route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler отдаёт метрики для скрейпа Prometheus
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop Recorder без побочных эффектов
type Nop struct{}

func (Nop) RecordEvent(string)                               {}
func (Nop) RecordDuplicateEvent()                            {}
func (Nop) RecordTransition(string, string)                  {}
func (Nop) RecordReading(string)                             {}
func (Nop) RecordFollowup(string)                            {}
func (Nop) RecordInterpretation(string, bool, time.Duration) {}
func (Nop) RecordQuotaExceeded(string)                       {}
func (Nop) RecordStateConflict()                             {}
func (Nop) RecordTimerFired(string, bool)                    {}
func (Nop) RecordPayment(string)                             {}
