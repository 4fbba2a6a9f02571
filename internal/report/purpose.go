package report

import (
	"github.com/shopspring/decimal"
)

// PurposeStat is the holding period and win rate of closed trades for one purpose
type PurposeStat struct {
	Purpose      int             `json:"purpose"`
	Label        string          `json:"label"`
	AvgDaysHeld  decimal.Decimal `json:"avg_days_held"`
	WinRate      decimal.Decimal `json:"win_rate"` // percent
	Trades       int             `json:"trades"`
	Wins         int             `json:"wins"`
	knownDays    int
	totalDaysSum int
}

// PurposeStats summarizes matrix rows per purpose, one entry per labelled
// purpose in code order. Rows with an unmapped purpose are skipped, and only
// known holding periods count toward the average.
func PurposeStats(rows []MatrixRow) []PurposeStat {
	stats := make([]PurposeStat, len(PurposeLabels))
	for code := range stats {
		stats[code] = PurposeStat{
			Purpose:     code,
			Label:       PurposeLabel(code),
			AvgDaysHeld: decimal.Zero,
			WinRate:     decimal.Zero,
		}
	}

	for _, r := range rows {
		if r.Purpose < 0 || r.Purpose >= len(stats) {
			continue
		}
		s := &stats[r.Purpose]
		if r.DaysHeld != nil {
			s.knownDays++
			s.totalDaysSum += *r.DaysHeld
		}
		s.Trades++
		if r.Profit.IsPositive() {
			s.Wins++
		}
	}

	for i := range stats {
		s := &stats[i]
		if s.knownDays > 0 {
			s.AvgDaysHeld = decimal.NewFromInt(int64(s.totalDaysSum)).
				Div(decimal.NewFromInt(int64(s.knownDays))).Round(1)
		}
		if s.Trades > 0 {
			s.WinRate = decimal.NewFromInt(int64(s.Wins * 100)).
				Div(decimal.NewFromInt(int64(s.Trades))).Round(1)
		}
	}
	return stats
}
