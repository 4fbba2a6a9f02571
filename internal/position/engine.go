package position

import (
	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/models"
)

// LotState is the state of both lots after a trade has been applied
type LotState struct {
	LongQty  int64           `json:"long_qty"`
	ShortQty int64           `json:"short_qty"`
	LongAvg  decimal.Decimal `json:"long_avg"`
	ShortAvg decimal.Decimal `json:"short_avg"`
}

// Engine replays one chain of trades against a long lot and a short lot,
// each kept at weighted-average cost. The zero value is an empty position.
type Engine struct {
	longQty   int64
	longCost  decimal.Decimal
	shortQty  int64
	shortCost decimal.Decimal
}

// Apply processes one trade and returns the realized profit events it
// produced. Buys cover the short lot before adding to the long lot; sells
// reduce the long lot before adding to the short lot.
func (e *Engine) Apply(kind models.TradeKind, price decimal.Decimal, quantity int64) []decimal.Decimal {
	var profits []decimal.Decimal
	q := quantity
	if q <= 0 {
		return nil
	}

	switch kind {
	case models.TradeKindBuy:
		if e.shortQty > 0 {
			cover := min(q, e.shortQty)
			avg := e.ShortAvg()
			n := decimal.NewFromInt(cover)
			profits = append(profits, avg.Sub(price).Mul(n))
			e.shortCost = e.shortCost.Sub(avg.Mul(n))
			e.shortQty -= cover
			q -= cover
			if e.shortQty == 0 {
				e.shortCost = decimal.Zero
			}
		}
		if q > 0 {
			e.longCost = e.longCost.Add(price.Mul(decimal.NewFromInt(q)))
			e.longQty += q
		}

	case models.TradeKindSell:
		if e.longQty > 0 {
			amount := min(q, e.longQty)
			avg := e.LongAvg()
			n := decimal.NewFromInt(amount)
			profits = append(profits, price.Sub(avg).Mul(n))
			e.longCost = e.longCost.Sub(avg.Mul(n))
			e.longQty -= amount
			q -= amount
			if e.longQty == 0 {
				e.longCost = decimal.Zero
			}
		}
		if q > 0 {
			e.shortCost = e.shortCost.Add(price.Mul(decimal.NewFromInt(q)))
			e.shortQty += q
		}
	}

	return profits
}

// LongAvg returns the average cost of the long lot, 0 when empty
func (e *Engine) LongAvg() decimal.Decimal {
	return average(e.longCost, e.longQty)
}

// ShortAvg returns the average price of the short lot, 0 when empty
func (e *Engine) ShortAvg() decimal.Decimal {
	return average(e.shortCost, e.shortQty)
}

// State returns a snapshot of both lots
func (e *Engine) State() LotState {
	return LotState{
		LongQty:  e.longQty,
		ShortQty: e.shortQty,
		LongAvg:  e.LongAvg(),
		ShortAvg: e.ShortAvg(),
	}
}

// Remaining returns the net holding: +long, -short, 0 when flat
func (e *Engine) Remaining() int64 {
	if e.longQty > 0 {
		return e.longQty
	}
	return -e.shortQty
}

// AveragePrice returns the long average when net long or flat, else the short average
func (e *Engine) AveragePrice() decimal.Decimal {
	if e.Remaining() < 0 {
		return e.ShortAvg()
	}
	return e.LongAvg()
}

// Closed reports whether both lots are empty
func (e *Engine) Closed() bool {
	return e.longQty == 0 && e.shortQty == 0
}

func average(cost decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return cost.Div(decimal.NewFromInt(qty))
}
