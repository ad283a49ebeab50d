package engine

import (
	"fmt"

	"github.com/escolanoar/vocacional/internal/models"
)

const (
	ReasonContinueP1 = "CONT_P1"
	ReasonContinueP2 = "CONT_P2"
	ReasonContinue   = "CONT"
)

// ShouldStop decides whether the assessment can end after the given stage.
//
// Stage 1 stops when the gap and the top-1 probability both reach their
// thresholds. Stage 2 additionally requires the top-3 set to match the one
// recorded for stage 1 (order ignored). Any other stage, or a stage with no
// aggregated data, continues.
func ShouldStop(state models.RefinementState, stage int, stats models.PassStats, cfg Config) (bool, string) {
	cfg = cfg.Normalize()

	switch stage {
	case 1:
		if len(stats.Top) == 0 {
			return false, ReasonContinueP1
		}
		if stats.Gap >= cfg.GapStopP1 && stats.Top1P >= cfg.Top1MinP1 {
			return true, fmt.Sprintf("STOP_P1(gap>=%g, top1>=%g)", cfg.GapStopP1, cfg.Top1MinP1)
		}
		return false, ReasonContinueP1

	case 2:
		if len(stats.Top) == 0 {
			return false, ReasonContinueP2
		}
		var prevTop []string
		if prev := state.Pass(1); prev != nil {
			prevTop = prev.Top
		}
		stable := SameTop3(prevTop, stats.Top)
		if stats.Gap >= cfg.GapStopP2 && stats.Top1P >= cfg.Top1MinP2 && stable {
			return true, fmt.Sprintf("STOP_P2(gap>=%g, top1>=%g, stable_top3)", cfg.GapStopP2, cfg.Top1MinP2)
		}
		return false, ReasonContinueP2
	}

	return false, ReasonContinue
}

// SameTop3 reports whether the first three entries of a and b form the same
// set. Two empty rankings are not considered stable.
func SameTop3(a, b []string) bool {
	a, b = head(a, 3), head(b, 3)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	other := make(map[string]bool, len(b))
	for _, s := range b {
		if !set[s] {
			return false
		}
		other[s] = true
	}
	return len(set) == len(other)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
