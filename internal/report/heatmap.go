package report

import (
	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/models"
)

const emotionLevels = models.EmotionMax + 1

// Heatmap aggregates realized profit by entry emotion (row) and exit emotion (column)
type Heatmap struct {
	Counts  [emotionLevels][emotionLevels]int             `json:"counts"`
	Sums    [emotionLevels][emotionLevels]decimal.Decimal `json:"sums"`
	Average [emotionLevels][emotionLevels]decimal.Decimal `json:"average"`
}

// NewHeatmap builds a heatmap from matrix rows
func NewHeatmap(rows []MatrixRow) *Heatmap {
	h := &Heatmap{}
	for i := range h.Sums {
		for j := range h.Sums[i] {
			h.Sums[i][j] = decimal.Zero
			h.Average[i][j] = decimal.Zero
		}
	}
	for _, r := range rows {
		h.Add(r.EntryEmotion, r.ExitEmotion, r.Profit)
	}
	return h
}

// Add accumulates one profit event. Emotions outside the scale are clamped.
func (h *Heatmap) Add(entry, exit int, profit decimal.Decimal) {
	i, j := models.ClampEmotion(entry), models.ClampEmotion(exit)
	h.Counts[i][j]++
	h.Sums[i][j] = h.Sums[i][j].Add(profit)
	h.Average[i][j] = h.Sums[i][j].Div(decimal.NewFromInt(int64(h.Counts[i][j])))
}

// Rounded returns a copy with sums and averages rounded to places decimal places
func (h Heatmap) Rounded(places int32) Heatmap {
	for i := range h.Sums {
		for j := range h.Sums[i] {
			h.Sums[i][j] = h.Sums[i][j].Round(places)
			h.Average[i][j] = h.Average[i][j].Round(places)
		}
	}
	return h
}
