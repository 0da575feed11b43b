package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsAreUniqueAndPrefixed(t *testing.T) {
	seenID := map[int]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "golms_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must be golms_*_total", def.Name)
		}
		if seenID[int(def.ID)] || seenName[def.Name] {
			t.Fatalf("duplicate counter %q", def.Name)
		}
		seenID[int(def.ID)] = true
		seenName[def.Name] = true
	}
	for _, def := range HistogramDefs {
		if seenID[int(def.ID)] {
			t.Fatalf("histogram %q reuses a counter id", def.Name)
		}
	}
}

func TestBoundsAlign(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("bounds=%d suffixes=%d, want 8", len(HistogramBounds), len(HistogramBoundSuffix))
	}
	if HistogramBounds[7] != "+Inf" || HistogramBoundSuffix[7] != "inf" {
		t.Fatal("last bucket must be +Inf")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
