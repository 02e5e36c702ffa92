package dispatch

import "github.com/prometheus/client_golang/prometheus"

// DeliveryCounter exposes the delivery counter to external tests.
func DeliveryCounter(channel, outcome string) prometheus.Counter {
	return deliveries.WithLabelValues(channel, outcome)
}
