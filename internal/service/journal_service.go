package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trade-journal/internal/company"
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/position"
	"github.com/trade-journal/internal/repository"
)

var (
	ErrParentNotFound = errors.New("parent record not found")
	ErrParentNotRoot  = errors.New("parent record is a follow-on")
	ErrNameRequired   = errors.New("security name is required and could not be looked up")
)

// PositionLimitError rejects a closing trade larger than the open position
type PositionLimitError struct {
	Requested int64 `json:"requested"`
	Remaining int64 `json:"remaining"`
}

func (e *PositionLimitError) Error() string {
	return fmt.Sprintf("quantity %d exceeds remaining position %d", e.Requested, e.Remaining)
}

// ReportInvalidator drops cached reports after a write
type ReportInvalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// JournalService handles journal record writes and history reads
type JournalService struct {
	trades       repository.TradeStore
	companies    company.Lookup
	reports      ReportInvalidator
	enforceLimit bool
	pageSize     int
	log          *zap.Logger
}

// JournalOptions configures a JournalService
type JournalOptions struct {
	EnforcePositionLimit bool
	HistoryPageSize      int
}

// NewJournalService creates a new JournalService
func NewJournalService(
	trades repository.TradeStore,
	companies company.Lookup,
	reports ReportInvalidator,
	opts JournalOptions,
	log *zap.Logger,
) *JournalService {
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalService{
		trades:       trades,
		companies:    companies,
		reports:      reports,
		enforceLimit: opts.EnforcePositionLimit,
		pageSize:     opts.HistoryPageSize,
		log:          log,
	}
}

// CreateResult is the outcome of CreateTrade
type CreateResult struct {
	Trade *models.Trade `json:"trade"`
	// WatchToDelete names a watch record for the same code that the new
	// record probably replaces
	WatchToDelete *uint `json:"watch_to_delete,omitempty"`
}

// HistoryFilter selects the chains returned by History. ID takes precedence
// over Query.
type HistoryFilter struct {
	ID    uint
	Query string
	Page  int
}

// HistoryPage is one page of position trees
type HistoryPage struct {
	Nodes    []position.Node `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// CreateTrade validates and stores a new record
func (s *JournalService) CreateTrade(ctx context.Context, userID uint, in TradeInput) (*CreateResult, error) {
	trade, err := ParseTradeInput(in)
	if err != nil {
		return nil, err
	}
	trade.UserID = userID

	err = s.trades.Transaction(ctx, func(tx repository.TradeStore) error {
		if err := s.prepare(ctx, tx, trade, hasValue(in.Purpose)); err != nil {
			return err
		}
		return tx.Create(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trade created",
		zap.Uint("user_id", userID),
		zap.Uint("trade_id", trade.ID),
		zap.String("kind", string(trade.Kind)),
		zap.String("code", trade.SecurityCode),
	)
	s.invalidate(ctx, userID)

	result := &CreateResult{Trade: trade}
	if trade.Kind != models.TradeKindWatch && trade.SecurityCode != "" {
		watch, err := s.trades.FindWatch(ctx, userID, trade.SecurityCode)
		switch {
		case err == nil && watch.ID != trade.ID:
			result.WatchToDelete = &watch.ID
		case err != nil && !errors.Is(err, repository.ErrTradeNotFound):
			s.log.Warn("watch lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return result, nil
}

// UpdateTrade replaces the fields of an existing record
func (s *JournalService) UpdateTrade(ctx context.Context, userID, id uint, in TradeInput) (*models.Trade, error) {
	trade, err := ParseTradeInput(in)
	if err != nil {
		return nil, err
	}

	err = s.trades.Transaction(ctx, func(tx repository.TradeStore) error {
		existing, err := tx.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		trade.ID = existing.ID
		trade.UserID = userID
		trade.CreatedAt = existing.CreatedAt
		if existing.IsRoot() {
			trade.ParentID = nil
		} else if trade.ParentID == nil {
			trade.ParentID = existing.ParentID
		}
		if trade.ParentID != nil && *trade.ParentID == trade.ID {
			return ErrParentNotRoot
		}

		if err := s.prepare(ctx, tx, trade, hasValue(in.Purpose)); err != nil {
			return err
		}
		return tx.Update(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trade updated", zap.Uint("user_id", userID), zap.Uint("trade_id", id))
	s.invalidate(ctx, userID)
	return trade, nil
}

// DeleteTrade removes a record. Deleting a root removes its whole chain.
func (s *JournalService) DeleteTrade(ctx context.Context, userID, id uint) (int64, error) {
	deleted, err := s.trades.Delete(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	s.log.Info("trade deleted",
		zap.Uint("user_id", userID),
		zap.Uint("trade_id", id),
		zap.Int64("rows", deleted),
	)
	s.invalidate(ctx, userID)
	return deleted, nil
}

// GetTrade retrieves a single record
func (s *JournalService) GetTrade(ctx context.Context, userID, id uint) (*models.Trade, error) {
	return s.trades.GetByID(ctx, userID, id)
}

// History returns a page of position trees, newest first
func (s *JournalService) History(ctx context.Context, userID uint, filter HistoryFilter) (*HistoryPage, error) {
	var (
		records []models.Trade
		err     error
	)
	switch {
	case filter.ID != 0:
		var rootID uint
		rootID, err = s.rootOf(ctx, s.trades, userID, filter.ID)
		if err != nil {
			return nil, err
		}
		records, err = s.trades.ListChain(ctx, userID, rootID)
	case strings.TrimSpace(filter.Query) != "":
		records, err = s.trades.ListChainsByCode(ctx, userID, strings.ToUpper(strings.TrimSpace(filter.Query)))
	default:
		records, err = s.trades.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	nodes := position.BuildTrees(records)
	items, page := Paginate(nodes, filter.Page, s.pageSize)
	return &HistoryPage{
		Nodes:    items,
		Total:    int64(len(nodes)),
		Page:     page,
		PageSize: s.pageSize,
	}, nil
}

// Remaining returns the signed open quantity of the chain containing id
func (s *JournalService) Remaining(ctx context.Context, userID, id uint) (int64, error) {
	rootID, err := s.rootOf(ctx, s.trades, userID, id)
	if err != nil {
		return 0, err
	}
	chain, err := s.trades.ListChain(ctx, userID, rootID)
	if err != nil {
		return 0, err
	}
	return position.Replay(chain).Remaining, nil
}

// prepare resolves the root of a follow-on, fills inherited fields and runs
// the position limit check. It must run inside the write transaction.
func (s *JournalService) prepare(ctx context.Context, tx repository.TradeStore, trade *models.Trade, purposeGiven bool) error {
	if trade.ParentID != nil {
		root, err := tx.LockRoot(ctx, trade.UserID, *trade.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrTradeNotFound) {
				return s.classifyParent(ctx, tx, trade.UserID, *trade.ParentID)
			}
			return err
		}
		if trade.SecurityCode == "" {
			trade.SecurityCode = root.SecurityCode
		}
		if trade.SecurityName == "" {
			trade.SecurityName = root.SecurityName
		}
		if !purposeGiven {
			trade.Purpose = root.Purpose
		}
		if err := s.fillName(trade); err != nil {
			return err
		}
		if !s.enforceLimit {
			return nil
		}
		chain, err := tx.ListChain(ctx, trade.UserID, root.ID)
		if err != nil {
			return err
		}
		return checkPositionLimit(withoutRecord(chain, trade.ID), trade)
	}

	if trade.ID != 0 {
		if _, err := tx.LockRoot(ctx, trade.UserID, trade.ID); err != nil {
			return err
		}
	}
	if err := s.fillName(trade); err != nil {
		return err
	}
	if trade.ID == 0 || !s.enforceLimit {
		return nil
	}

	// an edited root changes what every follow-on could close
	chain, err := tx.ListChain(ctx, trade.UserID, trade.ID)
	if err != nil {
		return err
	}
	return checkChainLimits(append(withoutRecord(chain, trade.ID), *trade))
}

func (s *JournalService) classifyParent(ctx context.Context, tx repository.TradeStore, userID, parentID uint) error {
	parent, err := tx.GetByID(ctx, userID, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			return ErrParentNotFound
		}
		return err
	}
	if !parent.IsRoot() {
		return ErrParentNotRoot
	}
	return ErrParentNotFound
}

func (s *JournalService) fillName(trade *models.Trade) error {
	if trade.SecurityName != "" {
		return nil
	}
	if s.companies != nil {
		if name, ok := s.companies.Name(trade.SecurityCode); ok {
			trade.SecurityName = name
			return nil
		}
	}
	return ErrNameRequired
}

func (s *JournalService) rootOf(ctx context.Context, store repository.TradeStore, userID, id uint) (uint, error) {
	trade, err := store.GetByID(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if trade.IsRoot() {
		return trade.ID, nil
	}
	return *trade.ParentID, nil
}

func (s *JournalService) invalidate(ctx context.Context, userID uint) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Invalidate(ctx, userID); err != nil {
		s.log.Warn("report cache invalidation failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// checkPositionLimit rejects a candidate that would close more than the open
// quantity of chain. With a flat chain the closing side is the opposite of
// the root's kind, so nothing can be closed.
func checkPositionLimit(chain []models.Trade, candidate *models.Trade) error {
	if candidate.Kind == models.TradeKindWatch || len(chain) == 0 {
		return nil
	}
	return closingLimit(position.Replay(chain).Remaining, rootKind(chain), candidate)
}

// checkChainLimits replays a whole chain in order and rejects it at the
// first follow-on that closes more than was open before it
func checkChainLimits(chain []models.Trade) error {
	ordered := make([]models.Trade, len(chain))
	copy(ordered, chain)
	position.SortChain(ordered)
	root := rootKind(ordered)

	var e position.Engine
	for i := range ordered {
		t := &ordered[i]
		if !t.IsRoot() && t.Kind != models.TradeKindWatch {
			if err := closingLimit(e.Remaining(), root, t); err != nil {
				return err
			}
		}
		e.Apply(t.Kind, t.Price, t.Quantity)
	}
	return nil
}

// closingLimit checks candidate against a chain whose net holding is net
func closingLimit(net int64, root models.TradeKind, candidate *models.Trade) error {
	var closing models.TradeKind
	switch {
	case net > 0:
		closing = models.TradeKindSell
	case net < 0:
		closing = models.TradeKindBuy
	default:
		closing = root.Opposite()
	}
	if candidate.Kind != closing {
		return nil
	}

	available := net
	if available < 0 {
		available = -available
	}
	if candidate.Quantity > available {
		return &PositionLimitError{Requested: candidate.Quantity, Remaining: available}
	}
	return nil
}

func hasValue(raw string) bool {
	return strings.TrimSpace(raw) != ""
}

func rootKind(chain []models.Trade) models.TradeKind {
	for _, t := range chain {
		if t.IsRoot() {
			return t.Kind
		}
	}
	return ""
}

func withoutRecord(chain []models.Trade, id uint) []models.Trade {
	if id == 0 {
		return chain
	}
	out := make([]models.Trade, 0, len(chain))
	for _, t := range chain {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Paginate returns the 1-based page of items and the page actually used
func Paginate[T any](items []T, page, size int) ([]T, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		return items, page
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, page
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page
}
