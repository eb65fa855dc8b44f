package devices

import (
	"math"
	"testing"
	"time"

	"garden-link/types"
)

func TestClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		value int
		want  types.Category
	}{
		{math.MinInt, types.Unknown},
		{-1, types.Unknown},
		{0, types.Dry},
		{80, types.Dry},
		{81, types.Normal},
		{120, types.Normal},
		{121, types.Wet},
		{1023, types.Wet},
		{math.MaxInt, types.Wet},
	}
	for _, tt := range tests {
		if got := th.Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestClassifyIsDeterministicAcrossBands(t *testing.T) {
	th := Thresholds{DryMax: 10, NormalMax: 20}
	prev := th.Classify(-5)
	changes := 0
	for v := -5; v <= 30; v++ {
		c := th.Classify(v)
		if c != th.Classify(v) {
			t.Fatalf("Classify(%d) not deterministic", v)
		}
		if c != prev {
			changes++
			prev = c
		}
	}
	// Unknown -> Dry -> Normal -> Wet
	if changes != 3 {
		t.Errorf("expected 3 band changes, got %d", changes)
	}
}

func TestClassifySample(t *testing.T) {
	th := DefaultThresholds()
	if got := th.ClassifySample(nil); got != types.Unknown {
		t.Errorf("expected Unknown for no sample, got %s", got)
	}
	s := &types.TelemetrySample{Value: 100, CapturedAt: time.Now()}
	if got := th.ClassifySample(s); got != types.Normal {
		t.Errorf("expected Normal, got %s", got)
	}
}
