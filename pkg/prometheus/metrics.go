package prometheus

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeMetrics returns the request counter and latency histogram used by the
// service metrics middleware.
func MakeMetrics(namespace, subsystem string) (*kitprometheus.Counter, *kitprometheus.Summary) {
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})

	return counter, latency
}

// ProtocolMetrics count protocol events of a role.
type ProtocolMetrics struct {
	Messages metrics.Counter
	Rounds   metrics.Counter
	Bytes    metrics.Counter
}

// DiscardProtocolMetrics returns metrics that record nothing.
func DiscardProtocolMetrics() ProtocolMetrics {
	return ProtocolMetrics{
		Messages: discard.NewCounter(),
		Rounds:   discard.NewCounter(),
		Bytes:    discard.NewCounter(),
	}
}

func MakeProtocolMetrics(namespace, subsystem string) ProtocolMetrics {
	return ProtocolMetrics{
		Messages: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_total",
			Help:      "Protocol messages by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Rounds: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rounds_total",
			Help:      "Completed aggregation rounds.",
		}, []string{}),
		Bytes: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_total",
			Help:      "Bytes transferred by direction.",
		}, []string{"direction"}),
	}
}
