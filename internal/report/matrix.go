package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/position"
)

// MatrixSort selects the ordering of matrix rows
type MatrixSort string

const (
	SortDateDesc   MatrixSort = "date_desc"
	SortDateAsc    MatrixSort = "date_asc"
	SortProfitDesc MatrixSort = "profit_desc"
	SortProfitAsc  MatrixSort = "profit_asc"
)

// ParseMatrixSort falls back to SortDateDesc for unknown values
func ParseMatrixSort(s string) MatrixSort {
	switch MatrixSort(s) {
	case SortDateAsc, SortProfitDesc, SortProfitAsc:
		return MatrixSort(s)
	}
	return SortDateDesc
}

// MatrixRow is one realized profit event of a closing trade, paired with the
// root trade that opened the position
type MatrixRow struct {
	Profit       decimal.Decimal `json:"profit"`
	EntryEmotion int             `json:"entry_emotion"`
	ExitEmotion  int             `json:"exit_emotion"`
	DaysHeld     *int            `json:"days_held"` // nil when a date does not parse
	EntryMemo    string          `json:"entry_memo"`
	ExitMemo     string          `json:"exit_memo"`
	FollowOnID   uint            `json:"follow_on_id"`
	ExitDate     string          `json:"exit_date"`
	SecurityName string          `json:"security_name"`
	Purpose      int             `json:"purpose"`
}

// MatrixQuery filters and orders matrix rows. From and To are inclusive
// trade dates (YYYY-MM-DD); empty means unbounded.
type MatrixQuery struct {
	Sort MatrixSort
	From string
	To   string
}

// Matrix emits one row per profit event of every follow-on whose kind is
// opposite to its root's kind
func Matrix(nodes []position.Node, q MatrixQuery) []MatrixRow {
	rows := make([]MatrixRow, 0)
	for _, n := range nodes {
		parent := n.Parent
		for _, child := range n.Children {
			if !isOpposite(parent.Kind, child.Kind) || len(child.Profits) == 0 {
				continue
			}
			if q.From != "" && child.TradeDate < q.From {
				continue
			}
			if q.To != "" && child.TradeDate > q.To {
				continue
			}
			days := daysBetween(parent.TradeDate, child.TradeDate)
			for _, p := range child.Profits {
				rows = append(rows, MatrixRow{
					Profit:       p,
					EntryEmotion: models.ClampEmotion(parent.Emotion),
					ExitEmotion:  models.ClampEmotion(child.Emotion),
					DaysHeld:     days,
					EntryMemo:    parent.Memo,
					ExitMemo:     child.Memo,
					FollowOnID:   child.ID,
					ExitDate:     child.TradeDate,
					SecurityName: parent.SecurityName,
					Purpose:      parent.Purpose,
				})
			}
		}
	}
	SortMatrix(rows, q.Sort)
	return rows
}

// SortMatrix orders rows in place. Ties keep follow-on id order.
func SortMatrix(rows []MatrixRow, by MatrixSort) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch by {
		case SortDateAsc:
			if a.ExitDate != b.ExitDate {
				return a.ExitDate < b.ExitDate
			}
		case SortProfitDesc:
			if c := a.Profit.Cmp(b.Profit); c != 0 {
				return c > 0
			}
		case SortProfitAsc:
			if c := a.Profit.Cmp(b.Profit); c != 0 {
				return c < 0
			}
		default:
			if a.ExitDate != b.ExitDate {
				return a.ExitDate > b.ExitDate
			}
		}
		return a.FollowOnID < b.FollowOnID
	})
}

func isOpposite(root, child models.TradeKind) bool {
	return root.Opposite() != "" && root.Opposite() == child
}

// daysBetween returns whole days from entry to exit, nil if either is not a date
func daysBetween(entry, exit string) *int {
	d0, err := time.Parse(models.TradeDateLayout, entry)
	if err != nil {
		return nil
	}
	d1, err := time.Parse(models.TradeDateLayout, exit)
	if err != nil {
		return nil
	}
	days := int(d1.Sub(d0).Hours() / 24)
	return &days
}

// Rounded returns the row with its profit rounded to places decimal places
func (r MatrixRow) Rounded(places int32) MatrixRow {
	r.Profit = r.Profit.Round(places)
	return r
}
