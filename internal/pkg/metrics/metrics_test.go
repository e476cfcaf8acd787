package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = (*Collector)(nil)
var _ Recorder = Nop{}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEvent("text")
	c.RecordEvent("text")
	c.RecordEvent("postback")
	c.RecordStateConflict()
	c.RecordTimerFired("followup_expiry", false)
	c.RecordInterpretation("initial", true, 10*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, reg, "tarot_inbound_events_total", map[string]string{"kind": "text"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tarot_inbound_events_total", map[string]string{"kind": "postback"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tarot_state_conflicts_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "tarot_timers_fired_total", map[string]string{"result": "error"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tarot_interpretations_total", map[string]string{"source": "fallback"}))
}

func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPayment("PAID")
	c.RecordHTTPRequest("/webhook", 200, 5*time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tarot_payments_total{status="PAID"} 1`)
	assert.Contains(t, string(body), `tarot_http_request_duration_seconds_count{route="/webhook",status="200"} 1`)
}
