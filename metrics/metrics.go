// Package metrics exposes the acceptance core's counters to Prometheus,
// grouped the way the rest of the domain stack's metric files are
// (Namespace/Subsystem/Name triples built once at package init and
// installed by Register; see e.g. etcd's mvcc metrics in the example
// corpus).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "ndstream"
	subsystem = "receiver"
)

var (
	admissionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admission_decisions_total",
			Help:      "Count of admission-gate verdicts by outcome.",
		},
		[]string{"verdict"},
	)

	duplicateResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duplicate_resolutions_total",
			Help:      "Count of duplicate-connection classifications by outcome.",
		},
		[]string{"outcome"},
	)

	handoffsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handoffs_total",
			Help:      "Count of Receiver States successfully enqueued to a streaming worker.",
		},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "post_takeover_rejections_total",
			Help:      "Count of connections rejected after socket takeover, by stage.",
		},
		[]string{"stage"},
	)

	allocatedBytes = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocated_bytes",
			Help:      "Bytes currently charged to live Receiver States.",
		},
		func() float64 { return float64(allocatedBytesFunc()) },
	)

	// allocatedBytesFunc is overridden by Register to read the live
	// receiver package counter without metrics importing receiver
	// directly.
	allocatedBytesFunc = func() int64 { return 0 }
)

// Register installs every collector into reg. AllocatedBytes supplies
// the live byte-accounting reader (receiver.AllocatedBytes) without this
// package importing the receiver package directly, keeping metrics a
// leaf dependency the way the rest of the domain stack expects.
func Register(reg prometheus.Registerer, allocatedBytesReader func() int64) {
	if allocatedBytesReader != nil {
		allocatedBytesFunc = allocatedBytesReader
	}
	reg.MustRegister(admissionTotal, duplicateResolutionsTotal, handoffsTotal, rejectionsTotal, allocatedBytes)
}

// ObserveAdmission records one admission-gate verdict (spec.md §4.C).
func ObserveAdmission(verdict string) {
	admissionTotal.WithLabelValues(verdict).Inc()
}

// ObserveDuplicateResolution records one duplicate-connection
// resolution outcome (spec.md §4.D); the server labels it with
// server.DuplicateOutcome's String ("no_conflict" or "still_busy").
func ObserveDuplicateResolution(outcome string) {
	duplicateResolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHandoff records one successful enqueue to a streaming worker
// (spec.md §4.H).
func ObserveHandoff() {
	handoffsTotal.Inc()
}

// ObserveRejection records one post-takeover rejection, labeled by the
// stage that rejected it ("bind" or "negotiate"; spec.md §4.F, §4.G).
func ObserveRejection(stage string) {
	rejectionsTotal.WithLabelValues(stage).Inc()
}
