package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg, func() int64 { return 4096 })

	ObserveAdmission("permit")
	ObserveDuplicateResolution("working")
	ObserveHandoff()
	ObserveRejection("bind")

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	require.Contains(t, byName, "ndstream_receiver_admission_decisions_total")
	require.Contains(t, byName, "ndstream_receiver_handoffs_total")
	require.Contains(t, byName, "ndstream_receiver_allocated_bytes")

	gauge := byName["ndstream_receiver_allocated_bytes"].GetMetric()[0].GetGauge()
	require.Equal(t, float64(4096), gauge.GetValue())
}
