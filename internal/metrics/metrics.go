// Package metrics exports dispatch counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/translate"
)

// Config controls the metrics HTTP endpoint.
type Config struct {
	Addr string `help:"Metrics and health listen address; empty to disable" default:"localhost:9250" env:"EZSHIM_METRICS_ADDR"`
}

// Observer records every dispatch.
type Observer struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var _ translate.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg when it
// is not nil.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ezshim_ioctl_requests_total",
			Help: "The number of driver requests dispatched, by IOCTL and status.",
		}, []string{"ioctl", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ezshim_ioctl_duration_seconds",
			Help:    "Time spent dispatching a driver request, including its transfers.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"ioctl"}),
	}
	if reg != nil {
		reg.MustRegister(o.requestsTotal, o.duration)
	}
	return o
}

func (o *Observer) ObserveDispatch(code ezusb.IOCTL, res translate.Result, elapsed time.Duration) {
	name := code.String()
	o.requestsTotal.WithLabelValues(name, res.Status.String()).Inc()
	o.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}
