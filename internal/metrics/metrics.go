// Package metrics exposes the distributor's Prometheus collectors:
// serializer depth, the process-wide overload signal, distribute task
// outcomes, and authenticator verdicts, registered with promauto under
// a single namespace. The serializer-depth, overload and endpoint
// reachability gauges are updated by the process; DistributedTotal,
// AuthVerdictsTotal, Stateless481Total and Stateless501Total are
// registered but nothing in this module increments them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "distributor"

// Collectors groups every metric the distributor registers at startup.
type Collectors struct {
	SerializerDepth   *prometheus.GaugeVec
	Overloaded        prometheus.Gauge
	DistributedTotal  *prometheus.CounterVec
	AuthVerdictsTotal *prometheus.CounterVec
	Stateless481Total prometheus.Counter
	Stateless501Total prometheus.Counter
	EndpointReachable *prometheus.GaugeVec
}

// New registers every collector against reg and returns the handle used
// to update them. Pass prometheus.DefaultRegisterer to expose them on
// the process-wide /metrics endpoint.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		SerializerDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "serializer",
			Name:      "depth",
			Help:      "Number of tasks queued or running on a serializer.",
		}, []string{"serializer"}),

		Overloaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overloaded",
			Help:      "1 when the process-wide overload signal is set, 0 otherwise.",
		}),

		DistributedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distributed_total",
			Help:      "Requests and responses dispatched onto a serializer, by affinity path.",
		}, []string{"path"}),

		AuthVerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verdicts_total",
			Help:      "Authenticator verdicts by outcome.",
		}, []string{"verdict"}),

		Stateless481Total: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stateless_481_total",
			Help:      "Stateless 481 replies sent for orphan BYE/CANCEL requests.",
		}),

		Stateless501Total: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stateless_501_total",
			Help:      "Stateless 501 replies sent when the module chain left a request unhandled.",
		}),

		EndpointReachable: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "reachable",
			Help:      "1 if the endpoint's last OPTIONS qualify probe succeeded, 0 otherwise.",
		}, []string{"endpoint"}),
	}
}

// ObservePoolDepths refreshes the serializer-depth gauge for a batch of
// (name, depth) pairs, called periodically off the pool's member list.
func (c *Collectors) ObservePoolDepths(depths map[string]int) {
	for name, depth := range depths {
		c.SerializerDepth.WithLabelValues(name).Set(float64(depth))
	}
}

// SetOverloaded records the current overload signal as 0 or 1.
func (c *Collectors) SetOverloaded(v bool) {
	if v {
		c.Overloaded.Set(1)
		return
	}
	c.Overloaded.Set(0)
}
