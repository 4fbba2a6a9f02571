package repository

import (
	"context"
	"errors"

	"github.com/trade-journal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeRepository handles trade data access
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Transaction runs fn in a database transaction
func (r *TradeRepository) Transaction(ctx context.Context, fn func(tx TradeStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TradeRepository{db: tx})
	})
}

// Create creates a new trade
func (r *TradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// Update saves every column of a trade
func (r *TradeRepository) Update(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Save(trade).Error
}

// GetByID retrieves a trade by ID
func (r *TradeRepository) GetByID(ctx context.Context, userID, id uint) (*models.Trade, error) {
	var trade models.Trade
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&trade, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, result.Error
	}
	return &trade, nil
}

// LockRoot retrieves a root trade with a row lock
func (r *TradeRepository) LockRoot(ctx context.Context, userID, rootID uint) (*models.Trade, error) {
	var trade models.Trade
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND parent_id IS NULL", userID).
		First(&trade, rootID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, result.Error
	}
	return &trade, nil
}

// Delete hard deletes a trade, and its follow-ons when it is a root
func (r *TradeRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.Where("user_id = ?", userID).First(&trade, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTradeNotFound
			}
			return err
		}

		query := tx.Where("user_id = ?", userID)
		if trade.IsRoot() {
			query = query.Where("id = ? OR parent_id = ?", id, id)
		} else {
			query = query.Where("id = ?", id)
		}
		result := query.Delete(&models.Trade{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// ListByUser retrieves every trade of a user
func (r *TradeRepository) ListByUser(ctx context.Context, userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("trade_date DESC, id DESC").
		Find(&trades)
	return trades, result.Error
}

// ListChain retrieves a root and its follow-ons
func (r *TradeRepository) ListChain(ctx context.Context, userID, rootID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND (id = ? OR parent_id = ?)", userID, rootID, rootID).
		Order("trade_date, id").
		Find(&trades)
	return trades, result.Error
}

// ListChainsByCode retrieves the chains whose root code contains query
func (r *TradeRepository) ListChainsByCode(ctx context.Context, userID uint, query string) ([]models.Trade, error) {
	roots := r.db.Model(&models.Trade{}).
		Select("id").
		Where("user_id = ? AND parent_id IS NULL AND security_code LIKE ?", userID, "%"+query+"%")

	var trades []models.Trade
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("id IN (?) OR parent_id IN (?)", roots, roots).
		Order("trade_date, id").
		Find(&trades)
	return trades, result.Error
}

// FindWatch retrieves the watch record for a code, if any
func (r *TradeRepository) FindWatch(ctx context.Context, userID uint, code string) (*models.Trade, error) {
	var trade models.Trade
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND security_code = ?", userID, models.TradeKindWatch, code).
		Order("id").
		First(&trade)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, result.Error
	}
	return &trade, nil
}

// ListUserIDs returns the users that have at least one trade
func (r *TradeRepository) ListUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	result := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids)
	return ids, result.Error
}
