package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-journal/internal/models"
)

func ptr(id uint) *uint { return &id }

func trade(id uint, parent *uint, kind models.TradeKind, price string, qty int64, date string) models.Trade {
	return models.Trade{
		ID:           id,
		ParentID:     parent,
		Kind:         kind,
		Price:        d(price),
		Quantity:     qty,
		TradeDate:    date,
		SecurityCode: "7203",
		SecurityName: "Toyota",
	}
}

func TestBuildTrees_RootWithoutFollowOns(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "1500", 100, "2025-05-01"),
	})
	require.Len(t, nodes, 1)

	n := nodes[0]
	assert.Equal(t, uint(1), n.Parent.ID)
	assert.Empty(t, n.Children)
	assert.Equal(t, int64(100), n.Remaining)
	assertDecimal(t, "1500", n.AveragePrice)
	assertDecimal(t, "0", n.TotalProfit)
	assert.False(t, n.IsCompleted)
}

func TestBuildTrees_ShortRootWithoutFollowOns(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindSell, "800", 40, "2025-05-01"),
	})
	require.Len(t, nodes, 1)
	assert.Equal(t, int64(-40), nodes[0].Remaining)
	assertDecimal(t, "800", nodes[0].AveragePrice)
}

func TestBuildTrees_ClosedPosition(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(2, ptr(1), models.TradeKindSell, "1200", 100, "2025-02-01"),
		trade(1, nil, models.TradeKindBuy, "1000", 100, "2025-01-01"),
	})
	require.Len(t, nodes, 1)

	n := nodes[0]
	require.Len(t, n.Children, 1)
	require.Len(t, n.Children[0].Profits, 1)
	assertDecimal(t, "20000", n.Children[0].Profits[0])
	assert.Empty(t, n.Parent.Profits)
	assert.Equal(t, int64(0), n.Remaining)
	assert.True(t, n.IsCompleted)
	assertDecimal(t, "20000", n.TotalProfit)
}

func TestBuildTrees_PositionFlipsToShort(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "1000", 100, "2025-01-01"),
		trade(2, ptr(1), models.TradeKindSell, "1100", 150, "2025-01-10"),
	})
	require.Len(t, nodes, 1)

	n := nodes[0]
	assert.Equal(t, int64(-50), n.Remaining)
	assert.False(t, n.IsCompleted)
	assertDecimal(t, "1100", n.AveragePrice)
	assertDecimal(t, "10000", n.TotalProfit)

	state := n.Children[0].State
	assert.Equal(t, int64(0), state.LongQty)
	assert.Equal(t, int64(50), state.ShortQty)
}

func TestBuildTrees_OrdersChainByDateThenID(t *testing.T) {
	// the sell dated before the second buy must match the first lot only
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "100", 10, "2025-01-01"),
		trade(4, ptr(1), models.TradeKindBuy, "300", 10, "2025-03-01"),
		trade(3, ptr(1), models.TradeKindSell, "150", 10, "2025-02-01"),
		trade(2, ptr(1), models.TradeKindBuy, "200", 10, "2025-02-01"),
	})
	require.Len(t, nodes, 1)

	children := nodes[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, []uint{2, 3, 4}, []uint{children[0].ID, children[1].ID, children[2].ID})

	// id 2 (same date, lower id) is applied before the sell: avg 150
	require.Len(t, children[1].Profits, 1)
	assertDecimal(t, "0", children[1].Profits[0])
	assert.Equal(t, int64(20), nodes[0].Remaining)
	assertDecimal(t, "225", nodes[0].AveragePrice)
}

func TestBuildTrees_OrphansAreExcluded(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "100", 10, "2025-01-01"),
		trade(2, ptr(99), models.TradeKindSell, "150", 10, "2025-01-02"),
		// points at a follow-on, not a root
		trade(3, ptr(2), models.TradeKindSell, "150", 10, "2025-01-03"),
	})
	require.Len(t, nodes, 1)
	assert.Empty(t, nodes[0].Children)
	assert.Equal(t, int64(10), nodes[0].Remaining)
}

func TestBuildTrees_EmptyInput(t *testing.T) {
	assert.Empty(t, BuildTrees(nil))
	assert.Empty(t, BuildTrees([]models.Trade{}))
}

func TestBuildTrees_NewestRootFirst(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "100", 10, "2025-01-01"),
		trade(2, nil, models.TradeKindBuy, "100", 10, "2025-03-01"),
		trade(3, nil, models.TradeKindWatch, "0", 0, "2025-02-01"),
	})
	require.Len(t, nodes, 3)
	assert.Equal(t, uint(2), nodes[0].Parent.ID)
	assert.Equal(t, uint(3), nodes[1].Parent.ID)
	assert.Equal(t, uint(1), nodes[2].Parent.ID)
	assert.True(t, nodes[1].IsCompleted)
}

func TestReplay_IsDeterministic(t *testing.T) {
	chain := []models.Trade{
		trade(5, ptr(1), models.TradeKindBuy, "95", 7, "2025-01-05"),
		trade(1, nil, models.TradeKindBuy, "100", 10, "2025-01-01"),
		trade(3, ptr(1), models.TradeKindSell, "120", 12, "2025-01-03"),
		trade(4, ptr(1), models.TradeKindSell, "110", 3, "2025-01-03"),
	}

	first := Replay(chain)
	second := Replay(chain)

	assert.Equal(t, first.Remaining, second.Remaining)
	assert.True(t, first.TotalProfit.Equal(second.TotalProfit))
	require.Len(t, second.Entries, len(first.Entries))
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].ID, second.Entries[i].ID)
		require.Len(t, second.Entries[i].Profits, len(first.Entries[i].Profits))
		for j := range first.Entries[i].Profits {
			assert.True(t, first.Entries[i].Profits[j].Equal(second.Entries[i].Profits[j]))
		}
	}
	// input order is preserved
	assert.Equal(t, uint(5), chain[0].ID)
}

func TestNode_RoundedForDisplay(t *testing.T) {
	nodes := BuildTrees([]models.Trade{
		trade(1, nil, models.TradeKindBuy, "100", 1, "2025-01-01"),
		trade(2, ptr(1), models.TradeKindBuy, "101", 2, "2025-01-02"),
		trade(3, ptr(1), models.TradeKindSell, "110", 1, "2025-01-03"),
		trade(4, ptr(1), models.TradeKindSell, "110", 2, "2025-01-04"),
	})
	require.Len(t, nodes, 1)

	shown := nodes[0].Rounded(models.PricePlaces)
	assertDecimal(t, "28", shown.TotalProfit)
	require.Len(t, shown.Children, 3)
	assertDecimal(t, "100.6667", shown.Children[0].State.LongAvg)
	assertDecimal(t, "9.3333", shown.Children[1].Profits[0])
	assertDecimal(t, "18.6667", shown.Children[2].Profits[0])
	assert.True(t, shown.IsCompleted)

	// the computed node keeps full precision
	assert.True(t, nodes[0].Children[1].Profits[0].Exponent() < -models.PricePlaces)
}
