package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var realtimeSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_realtime_notifications_sent_total",
	Help: "Number of realtime notifications delivered.",
})

var realtimeSuppressed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_realtime_notifications_suppressed_total",
	Help: "Number of realtime notifications suppressed by the cooldown window.",
})

var digestEnqueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_digest_items_enqueued_total",
	Help: "Number of opportunities enqueued into digest queues.",
})

var digestCompiled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_digests_compiled_total",
	Help: "Number of digests compiled for delivery.",
})
