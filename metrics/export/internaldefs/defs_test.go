package internaldefs

import (
	"testing"

	goAuthState "github.com/MrEthical07/goAuthState"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goAuthState.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("counter %d defined twice", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("name %s used twice", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	// Every ID below the latency histogram is a counter.
	for id := goAuthState.MetricID(0); id < goAuthState.MetricSignInLatency; id++ {
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatal("bucket label tables must have eight entries")
	}
}
