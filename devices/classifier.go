package devices

import (
	"garden-link/config"
	"garden-link/types"
)

// Thresholds are the inclusive upper bounds of the Dry and Normal bands.
// Anything above NormalMax is Wet.
type Thresholds struct {
	DryMax    int
	NormalMax int
}

func DefaultThresholds() Thresholds {
	return Thresholds{DryMax: 80, NormalMax: 120}
}

func ThresholdsFromConfig(c config.ThresholdsConfig) Thresholds {
	return Thresholds{DryMax: c.DryMax, NormalMax: c.NormalMax}
}

func (t Thresholds) Classify(value int) types.Category {
	switch {
	case value < 0:
		return types.Unknown
	case value <= t.DryMax:
		return types.Dry
	case value <= t.NormalMax:
		return types.Normal
	default:
		return types.Wet
	}
}

// ClassifySample maps a missing sample to Unknown.
func (t Thresholds) ClassifySample(s *types.TelemetrySample) types.Category {
	if s == nil {
		return types.Unknown
	}
	return t.Classify(s.Value)
}
