package app

import "github.com/bft-labs/clusterbus/internal/domain"

// NextValue computes a signal's next physical value. An inactive signal is
// always at its neutral value; auto mode climbs by 1.0 and holds at the
// maximum; fixed mode is re-clamped on every call.
func NextValue(sig *domain.Signal, previous float64, st domain.SignalState) float64 {
	if !st.Active {
		return sig.Neutral
	}
	if st.Mode.Kind == domain.ModeFixed {
		return sig.Clamp(st.Mode.Value)
	}
	if previous >= sig.Max {
		return sig.Max
	}
	return sig.Clamp(previous + 1.0)
}
