package telemetry

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "devpanel"

// Recorder counts pulls, push events and connection changes.
type Recorder struct {
	pulls       *prom.CounterVec
	pushEvents  *prom.CounterVec
	transitions *prom.CounterVec
	connected   prom.Gauge
}

// NewRecorder registers the devpanel metrics on reg. A nil reg gets a fresh
// registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		pulls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pulls_total",
			Help:      "REST pulls by resource and outcome",
		}, []string{"resource", "outcome"}),
		pushEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events applied by kind",
		}, []string{"kind"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "push_transitions_total",
			Help:      "Push channel connects and disconnects",
		}, []string{"state"}),
		connected: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is connected",
		}),
	}
	reg.MustRegister(r.pulls, r.pushEvents, r.transitions, r.connected)
	return r
}

// ObservePull counts one finished pull.
func (r *Recorder) ObservePull(resource string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	r.pulls.WithLabelValues(resource, outcome).Inc()
}

// ObservePushEvent counts one applied push event.
func (r *Recorder) ObservePushEvent(kind string) {
	if r == nil {
		return
	}
	r.pushEvents.WithLabelValues(kind).Inc()
}

// ObserveConnection records a connection status change.
func (r *Recorder) ObserveConnection(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.transitions.WithLabelValues("connected").Inc()
		r.connected.Set(1)
		return
	}
	r.transitions.WithLabelValues("disconnected").Inc()
	r.connected.Set(0)
}
