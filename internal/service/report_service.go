package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trade-journal/internal/cache"
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/position"
	"github.com/trade-journal/internal/report"
	"github.com/trade-journal/internal/repository"
)

// ReportService builds and caches the matrix, heatmap, purpose and summary
// reports. Cached entries are keyed by a per-user version that every journal
// write drops, so stale reports are never served.
type ReportService struct {
	trades repository.TradeStore
	cache  cache.Store
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(trades repository.TradeStore, store cache.Store, ttl time.Duration, log *zap.Logger) *ReportService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{
		trades: trades,
		cache:  store,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// Matrix returns the profit events of closing trades
func (s *ReportService) Matrix(ctx context.Context, userID uint, q report.MatrixQuery) ([]report.MatrixRow, error) {
	q.Sort = report.ParseMatrixSort(string(q.Sort))
	key := fmt.Sprintf("matrix:%s:%s:%s", q.Sort, q.From, q.To)

	var rows []report.MatrixRow
	err := s.cached(ctx, userID, key, &rows, func(nodes []position.Node) any {
		rows = report.Matrix(nodes, q)
		return rows
	})
	return rows, err
}

// Heatmap returns the emotion heatmap over the same rows as Matrix
func (s *ReportService) Heatmap(ctx context.Context, userID uint, q report.MatrixQuery) (*report.Heatmap, error) {
	key := fmt.Sprintf("heatmap:%s:%s", q.From, q.To)

	var heatmap report.Heatmap
	err := s.cached(ctx, userID, key, &heatmap, func(nodes []position.Node) any {
		heatmap = *report.NewHeatmap(report.Matrix(nodes, q))
		return heatmap
	})
	if err != nil {
		return nil, err
	}
	return &heatmap, nil
}

// PurposeStats returns holding period and win rate per purpose
func (s *ReportService) PurposeStats(ctx context.Context, userID uint) ([]report.PurposeStat, error) {
	var stats []report.PurposeStat
	err := s.cached(ctx, userID, "purposes", &stats, func(nodes []position.Node) any {
		stats = report.PurposeStats(report.Matrix(nodes, report.MatrixQuery{}))
		return stats
	})
	return stats, err
}

// Summary returns the net holding per security and purpose as of today
func (s *ReportService) Summary(ctx context.Context, userID uint, holdingOnly bool) ([]report.SummaryRow, error) {
	today := s.now()
	key := fmt.Sprintf("summary:%t:%s", holdingOnly, today.Format(models.TradeDateLayout))

	var rows []report.SummaryRow
	err := s.cached(ctx, userID, key, &rows, func(nodes []position.Node) any {
		rows = report.Summary(nodes, today, holdingOnly)
		return rows
	})
	return rows, err
}

// WarmSummary computes today's summaries for a user so the first request
// of the day is served from cache
func (s *ReportService) WarmSummary(ctx context.Context, userID uint) error {
	for _, holdingOnly := range []bool{true, false} {
		if _, err := s.Summary(ctx, userID, holdingOnly); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate retires every cached report of a user by dropping the version
// stamp. The next read starts a fresh version; old entries age out by TTL.
func (s *ReportService) Invalidate(ctx context.Context, userID uint) error {
	return s.cache.Delete(ctx, versionKey(userID))
}

// cached loads key from the cache into out, or builds the report from the
// user's trees and stores it. Cache failures are logged and bypassed.
func (s *ReportService) cached(ctx context.Context, userID uint, key string, out any, build func([]position.Node) any) error {
	fullKey, cacheOK := s.key(ctx, userID, key)
	if cacheOK {
		found, err := cache.GetJSON(ctx, s.cache, fullKey, out)
		if err != nil {
			s.log.Warn("report cache read failed", zap.String("key", fullKey), zap.Error(err))
		}
		if found {
			return nil
		}
	}

	records, err := s.trades.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	value := build(position.BuildTrees(records))

	if cacheOK {
		if err := cache.SetJSON(ctx, s.cache, fullKey, value, s.ttl); err != nil {
			s.log.Warn("report cache write failed", zap.String("key", fullKey), zap.Error(err))
		}
	}
	return nil
}

func (s *ReportService) key(ctx context.Context, userID uint, name string) (string, bool) {
	version, found, err := s.cache.Get(ctx, versionKey(userID))
	if err != nil {
		s.log.Warn("report cache version read failed", zap.Uint("user_id", userID), zap.Error(err))
		return "", false
	}
	if !found {
		version = []byte(uuid.NewString())
		if err := s.cache.Set(ctx, versionKey(userID), version, 0); err != nil {
			s.log.Warn("report cache version write failed", zap.Uint("user_id", userID), zap.Error(err))
			return "", false
		}
	}
	return fmt.Sprintf("report:%d:%s:%s", userID, version, name), true
}

func versionKey(userID uint) string {
	return fmt.Sprintf("report:%d:version", userID)
}
