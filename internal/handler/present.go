package handler

import (
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/position"
	"github.com/trade-journal/internal/report"
)

// Responses show computed money at the stored price scale

func presentNodes(nodes []position.Node) []position.Node {
	out := make([]position.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Rounded(models.PricePlaces)
	}
	return out
}

func presentMatrix(rows []report.MatrixRow) []report.MatrixRow {
	out := make([]report.MatrixRow, len(rows))
	for i, r := range rows {
		out[i] = r.Rounded(models.PricePlaces)
	}
	return out
}

func presentSummary(rows []report.SummaryRow) []report.SummaryRow {
	out := make([]report.SummaryRow, len(rows))
	for i, r := range rows {
		out[i] = r.Rounded(models.PricePlaces)
	}
	return out
}
