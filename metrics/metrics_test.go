package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srtnet/srtnet/metrics"
)

func TestRegistryRegisters(t *testing.T) {
	reg := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	reg.MustRegister(promReg)

	reg.SegmentsSent.Inc()
	reg.SegmentsDropped.WithLabelValues("malformed").Inc()
	reg.RoutingTableSize.Set(3)

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family after registration")
	}
}
