package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Tier is one loyalty level. Min is the lifetime points needed to reach it.
type Tier struct {
	Name       string  `json:"name"`
	Min        int     `json:"min"`
	Multiplier float64 `json:"multiplier"`
}

// TierStatus describes where a point total sits on the tier ladder.
type TierStatus struct {
	Current      Tier    `json:"current"`
	Next         *Tier   `json:"next,omitempty"`
	Progress     float64 `json:"progress"`
	PointsToNext int     `json:"points_to_next"`
}

var DefaultTiers = []Tier{
	{Name: "bronze", Min: 0, Multiplier: 1.0},
	{Name: "silver", Min: 500, Multiplier: 1.25},
	{Name: "gold", Min: 1500, Multiplier: 1.5},
	{Name: "platinum", Min: 5000, Multiplier: 2.0},
}

// ComputeTier picks the highest tier whose minimum is at most total.
// Tiers need not be sorted. Stored ladders always start at 0; for an ad hoc
// ladder that does not, a total below every minimum gets the lowest tier. Progress toward the next tier is a percentage
// clamped to [0, 100] and rounded to two decimals; the top tier reports 100.
func ComputeTier(total int, tiers []Tier) TierStatus {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	idx := 0
	for i, t := range sorted {
		if t.Min <= total {
			idx = i
		}
	}

	status := TierStatus{Current: sorted[idx]}
	if idx == len(sorted)-1 {
		status.Progress = 100
		return status
	}

	next := sorted[idx+1]
	status.Next = &next
	status.PointsToNext = next.Min - total
	if status.PointsToNext < 0 {
		status.PointsToNext = 0
	}

	span := next.Min - status.Current.Min
	if span <= 0 {
		status.Progress = 100
		return status
	}
	progress := float64(total-status.Current.Min) / float64(span) * 100
	progress = math.Max(0, math.Min(100, progress))
	status.Progress = math.Round(progress*100) / 100
	return status
}

// BonusPoints is the extra credit a tier multiplier grants on top of base points.
func BonusPoints(base int, multiplier float64) int {
	if base <= 0 || multiplier <= 1 {
		return 0
	}
	extra := decimal.NewFromFloat(multiplier).Sub(decimal.NewFromInt(1))
	return int(extra.Mul(decimal.NewFromInt(int64(base))).Floor().IntPart())
}
