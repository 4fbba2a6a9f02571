package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/position"
)

// PurposeLabels maps purpose codes to display labels
var PurposeLabels = map[int]string{
	0: "short-term",
	1: "mid-term",
	2: "long-term",
	3: "incentive",
	4: "dividend",
}

// PurposeLabel returns the label of a purpose code, or the code itself when unmapped
func PurposeLabel(purpose int) string {
	if label, ok := PurposeLabels[purpose]; ok {
		return label
	}
	return strconv.Itoa(purpose)
}

// SummaryRow is the net holding of one security and purpose
type SummaryRow struct {
	SecurityCode      string          `json:"security_code"`
	SecurityName      string          `json:"security_name"`
	Purpose           int             `json:"purpose"`
	PurposeLabel      string          `json:"purpose_label"`
	Holding           int64           `json:"holding"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	LastDate          string          `json:"last_date"`
	DaysSinceLast     *int            `json:"days_since_last"`
	LastMemo          string          `json:"last_memo"`
	EntryEmotion      int             `json:"entry_emotion"`
	OpenPositions     int             `json:"open_positions"`
	RealizedProfit    decimal.Decimal `json:"realized_profit"`
	lastID            uint
	latestRootDate    string
	latestRootID      uint
	weightedCostLong  decimal.Decimal
	weightedCostShort decimal.Decimal
	longQty           int64
	shortQty          int64
}

type summaryKey struct {
	code    string
	purpose int
}

// Summary groups position trees by security code and purpose. When
// holdingOnly is set, groups whose net holding is zero are omitted. Rows are
// ordered by last activity date, newest first.
func Summary(nodes []position.Node, today time.Time, holdingOnly bool) []SummaryRow {
	groups := make(map[summaryKey]*SummaryRow)
	order := make([]summaryKey, 0)

	for _, n := range nodes {
		key := summaryKey{code: n.Parent.SecurityCode, purpose: n.Parent.Purpose}
		row, ok := groups[key]
		if !ok {
			row = &SummaryRow{
				SecurityCode:      n.Parent.SecurityCode,
				SecurityName:      n.Parent.SecurityName,
				Purpose:           n.Parent.Purpose,
				PurposeLabel:      PurposeLabel(n.Parent.Purpose),
				RealizedProfit:    decimal.Zero,
				weightedCostLong:  decimal.Zero,
				weightedCostShort: decimal.Zero,
			}
			groups[key] = row
			order = append(order, key)
		}
		row.add(n)
	}

	rows := make([]SummaryRow, 0, len(groups))
	for _, key := range order {
		row := groups[key]
		if holdingOnly && row.Holding == 0 {
			continue
		}
		row.finish(today)
		rows = append(rows, *row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].LastDate != rows[j].LastDate {
			return rows[i].LastDate > rows[j].LastDate
		}
		return rows[i].lastID > rows[j].lastID
	})
	return rows
}

func (r *SummaryRow) add(n position.Node) {
	r.Holding += n.Remaining
	r.RealizedProfit = r.RealizedProfit.Add(n.TotalProfit)
	if !n.IsCompleted {
		r.OpenPositions++
	}

	switch {
	case n.Remaining > 0:
		r.longQty += n.Remaining
		r.weightedCostLong = r.weightedCostLong.Add(n.AveragePrice.Mul(decimal.NewFromInt(n.Remaining)))
	case n.Remaining < 0:
		r.shortQty += -n.Remaining
		r.weightedCostShort = r.weightedCostShort.Add(n.AveragePrice.Mul(decimal.NewFromInt(-n.Remaining)))
	}

	if later(n.Parent.TradeDate, n.Parent.ID, r.latestRootDate, r.latestRootID) {
		r.latestRootDate, r.latestRootID = n.Parent.TradeDate, n.Parent.ID
		r.EntryEmotion = n.Parent.Emotion
		r.SecurityName = n.Parent.SecurityName
	}

	entries := append([]position.Entry{n.Parent}, n.Children...)
	for _, e := range entries {
		if later(e.TradeDate, e.ID, r.LastDate, r.lastID) {
			r.LastDate, r.lastID = e.TradeDate, e.ID
			r.LastMemo = e.Memo
		}
	}
}

func (r *SummaryRow) finish(today time.Time) {
	r.AveragePrice = decimal.Zero
	switch {
	case r.Holding > 0 && r.longQty > 0:
		r.AveragePrice = r.weightedCostLong.Div(decimal.NewFromInt(r.longQty))
	case r.Holding < 0 && r.shortQty > 0:
		r.AveragePrice = r.weightedCostShort.Div(decimal.NewFromInt(r.shortQty))
	}

	last, err := time.Parse(models.TradeDateLayout, r.LastDate)
	if err != nil {
		return
	}
	y, m, d := today.Date()
	days := int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(last).Hours() / 24)
	if days < 0 {
		days = 0
	}
	r.DaysSinceLast = &days
}

func later(date string, id uint, thanDate string, thanID uint) bool {
	if date != thanDate {
		return date > thanDate
	}
	return id > thanID
}

// Rounded returns the row with its amounts rounded to places decimal places
func (r SummaryRow) Rounded(places int32) SummaryRow {
	r.AveragePrice = r.AveragePrice.Round(places)
	r.RealizedProfit = r.RealizedProfit.Round(places)
	return r
}
