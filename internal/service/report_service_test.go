package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-journal/internal/cache"
	"github.com/trade-journal/internal/company"
	"github.com/trade-journal/internal/report"
	"github.com/trade-journal/internal/repository/repotest"
)

type reportFixture struct {
	journal *JournalService
	reports *ReportService
	store   *repotest.TradeStore
}

func newReportFixture() reportFixture {
	store := repotest.NewTradeStore()
	reports := NewReportService(store, cache.NewMemoryStore(), time.Hour, nil)
	reports.now = func() time.Time { return time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC) }
	journal := NewJournalService(store, company.NewTable(map[string]string{"7203": "Toyota"}), reports,
		JournalOptions{EnforcePositionLimit: true}, nil)
	return reportFixture{journal: journal, reports: reports, store: store}
}

func (f reportFixture) create(t *testing.T, in TradeInput) uint {
	t.Helper()
	res, err := f.journal.CreateTrade(context.Background(), owner, in)
	require.NoError(t, err)
	return res.Trade.ID
}

func TestReportService_MatrixAndHeatmap(t *testing.T) {
	f := newReportFixture()
	root := input("buy", "7203", "1000", "100", "2025-01-10")
	root.Emotion = "1"
	rootID := f.create(t, root)
	exit := followOn(rootID, "sell", "1200", "100", "2025-02-10")
	exit.Emotion = "3"
	f.create(t, exit)

	rows, err := f.reports.Matrix(context.Background(), owner, report.MatrixQuery{Sort: "bogus"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "20000", rows[0].Profit.String())
	require.NotNil(t, rows[0].DaysHeld)
	assert.Equal(t, 31, *rows[0].DaysHeld)

	heatmap, err := f.reports.Heatmap(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, heatmap.Counts[1][3])
	assert.Equal(t, "20000", heatmap.Average[1][3].String())

	rows, err = f.reports.Matrix(context.Background(), owner, report.MatrixQuery{From: "2025-03-01"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReportService_CacheServesUntilInvalidated(t *testing.T) {
	f := newReportFixture()
	rootID := f.create(t, input("buy", "7203", "1000", "100", "2025-01-10"))
	f.create(t, followOn(rootID, "sell", "1200", "40", "2025-02-10"))

	rows, err := f.reports.Matrix(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// a write that bypasses the journal service leaves the cache untouched
	extra := followOn(rootID, "sell", "1100", "10", "2025-02-11")
	trade, err := ParseTradeInput(extra)
	require.NoError(t, err)
	trade.UserID = owner
	trade.SecurityCode = "7203"
	require.NoError(t, f.store.Create(context.Background(), trade))

	rows, err = f.reports.Matrix(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, f.reports.Invalidate(context.Background(), owner))
	rows, err = f.reports.Matrix(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// journal writes invalidate on their own
	f.create(t, followOn(rootID, "sell", "1100", "10", "2025-02-12"))
	rows, err = f.reports.Matrix(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReportService_Summary(t *testing.T) {
	f := newReportFixture()
	rootID := f.create(t, input("buy", "7203", "1000", "100", "2025-03-01"))
	f.create(t, followOn(rootID, "sell", "1200", "40", "2025-03-05"))
	closedID := f.create(t, input("buy", "7203", "500", "10", "2025-01-01"))
	f.create(t, followOn(closedID, "sell", "600", "10", "2025-01-02"))
	closedRoot := input("buy", "7203", "500", "10", "2025-01-01")
	closedRoot.Purpose = "1"
	otherID := f.create(t, closedRoot)
	f.create(t, followOn(otherID, "sell", "600", "10", "2025-01-02"))

	rows, err := f.reports.Summary(context.Background(), owner, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(60), rows[0].Holding)
	assert.Equal(t, "1000", rows[0].AveragePrice.String())
	assert.Equal(t, "2025-03-05", rows[0].LastDate)
	require.NotNil(t, rows[0].DaysSinceLast)
	assert.Equal(t, 6, *rows[0].DaysSinceLast)
	assert.Equal(t, "short-term", rows[0].PurposeLabel)

	rows, err = f.reports.Summary(context.Background(), owner, false)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, f.reports.WarmSummary(context.Background(), owner))
}

func TestReportService_PurposeStats(t *testing.T) {
	f := newReportFixture()
	rootID := f.create(t, input("buy", "7203", "1000", "100", "2025-01-10"))
	f.create(t, followOn(rootID, "sell", "900", "50", "2025-01-20"))
	f.create(t, followOn(rootID, "sell", "1100", "50", "2025-01-30"))

	stats, err := f.reports.PurposeStats(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, stats, 5)
	assert.Equal(t, 2, stats[0].Trades)
	assert.Equal(t, 1, stats[0].Wins)
	assert.Equal(t, "50", stats[0].WinRate.String())
	assert.Equal(t, "15", stats[0].AvgDaysHeld.String())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestReportService_CacheFailureFallsBackToStore(t *testing.T) {
	store := repotest.NewTradeStore()
	reports := NewReportService(store, brokenCache{}, time.Hour, nil)
	journal := NewJournalService(store, company.NewTable(map[string]string{"7203": "Toyota"}), reports,
		JournalOptions{EnforcePositionLimit: true}, nil)

	res, err := journal.CreateTrade(context.Background(), owner, input("buy", "7203", "1000", "100", "2025-01-10"))
	require.NoError(t, err)
	_, err = journal.CreateTrade(context.Background(), owner, followOn(res.Trade.ID, "sell", "1200", "100", "2025-02-10"))
	require.NoError(t, err)

	rows, err := reports.Matrix(context.Background(), owner, report.MatrixQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReportService_InvalidateDropsVersion(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	reports := NewReportService(repotest.NewTradeStore(), store, time.Hour, nil)

	_, err := reports.PurposeStats(ctx, owner)
	require.NoError(t, err)
	before, found, err := store.Get(ctx, versionKey(owner))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, reports.Invalidate(ctx, owner))
	_, found, err = store.Get(ctx, versionKey(owner))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = reports.PurposeStats(ctx, owner)
	require.NoError(t, err)
	after, found, err := store.Get(ctx, versionKey(owner))
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, before, after)
}
