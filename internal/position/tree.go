package position

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/models"
)

// Entry is a trade annotated with the result of replaying it
type Entry struct {
	models.Trade
	Profits []decimal.Decimal `json:"profits"`
	State   LotState          `json:"state"`
}

// Node is one position chain: a root record and its follow-ons
type Node struct {
	Parent       Entry           `json:"parent"`
	Children     []Entry         `json:"children"`
	Remaining    int64           `json:"remaining"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	AveragePrice decimal.Decimal `json:"average_price"`
	IsCompleted  bool            `json:"is_completed"`
}

// Result holds the chain-level outcome of a replay
type Result struct {
	Entries      []Entry
	Remaining    int64
	TotalProfit  decimal.Decimal
	AveragePrice decimal.Decimal
	Closed       bool
}

// Replay sorts a chain by (trade date, id) and runs it through a fresh
// Engine. The input slice is not modified.
func Replay(chain []models.Trade) Result {
	ordered := make([]models.Trade, len(chain))
	copy(ordered, chain)
	SortChain(ordered)

	var e Engine
	res := Result{
		Entries:     make([]Entry, 0, len(ordered)),
		TotalProfit: decimal.Zero,
	}
	for _, t := range ordered {
		profits := e.Apply(t.Kind, t.Price, t.Quantity)
		for _, p := range profits {
			res.TotalProfit = res.TotalProfit.Add(p)
		}
		if profits == nil {
			profits = []decimal.Decimal{}
		}
		res.Entries = append(res.Entries, Entry{Trade: t, Profits: profits, State: e.State()})
	}
	res.Remaining = e.Remaining()
	res.AveragePrice = e.AveragePrice()
	res.Closed = e.Closed()
	return res
}

// SortChain orders records by trade date, then id
func SortChain(chain []models.Trade) {
	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].TradeDate != chain[j].TradeDate {
			return chain[i].TradeDate < chain[j].TradeDate
		}
		return chain[i].ID < chain[j].ID
	})
}

// BuildTrees groups records into chains by parent id and replays each one.
// Records whose parent is not a root in the input are dropped. Nodes are
// returned newest root first.
func BuildTrees(records []models.Trade) []Node {
	roots := make([]models.Trade, 0)
	children := make(map[uint][]models.Trade)
	for _, r := range records {
		if r.IsRoot() {
			roots = append(roots, r)
			continue
		}
		children[*r.ParentID] = append(children[*r.ParentID], r)
	}

	SortChain(roots)
	nodes := make([]Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		nodes = append(nodes, buildNode(roots[i], children[roots[i].ID]))
	}
	return nodes
}

func buildNode(root models.Trade, followOns []models.Trade) Node {
	chain := make([]models.Trade, 0, len(followOns)+1)
	chain = append(chain, root)
	chain = append(chain, followOns...)

	res := Replay(chain)
	node := Node{
		Children:     make([]Entry, 0, len(followOns)),
		Remaining:    res.Remaining,
		TotalProfit:  res.TotalProfit,
		AveragePrice: res.AveragePrice,
		IsCompleted:  res.Closed,
	}
	for _, entry := range res.Entries {
		if entry.ID == root.ID && entry.IsRoot() {
			node.Parent = entry
			continue
		}
		node.Children = append(node.Children, entry)
	}
	return node
}

// Rounded returns a copy of the node with every computed amount rounded to
// places decimal places
func (n Node) Rounded(places int32) Node {
	out := n
	out.Parent = n.Parent.rounded(places)
	out.Children = make([]Entry, len(n.Children))
	for i, c := range n.Children {
		out.Children[i] = c.rounded(places)
	}
	out.TotalProfit = n.TotalProfit.Round(places)
	out.AveragePrice = n.AveragePrice.Round(places)
	return out
}

func (e Entry) rounded(places int32) Entry {
	out := e
	out.Profits = make([]decimal.Decimal, len(e.Profits))
	for i, p := range e.Profits {
		out.Profits[i] = p.Round(places)
	}
	out.State.LongAvg = e.State.LongAvg.Round(places)
	out.State.ShortAvg = e.State.ShortAvg.Round(places)
	return out
}
