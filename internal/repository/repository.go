package repository

import (
	"context"
	"errors"

	"github.com/trade-journal/internal/models"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrUserNotFound  = errors.New("user not found")
)

// TradeStore is the persistence contract of the journal. Every method is
// scoped to one user.
type TradeStore interface {
	// Transaction runs fn against a store bound to one database transaction
	Transaction(ctx context.Context, fn func(tx TradeStore) error) error

	Create(ctx context.Context, trade *models.Trade) error
	Update(ctx context.Context, trade *models.Trade) error
	GetByID(ctx context.Context, userID, id uint) (*models.Trade, error)
	// LockRoot loads a root record and holds a row lock on it until the
	// surrounding transaction ends
	LockRoot(ctx context.Context, userID, rootID uint) (*models.Trade, error)
	// Delete removes a record; deleting a root removes its follow-ons too
	Delete(ctx context.Context, userID, id uint) (int64, error)

	ListByUser(ctx context.Context, userID uint) ([]models.Trade, error)
	ListChain(ctx context.Context, userID, rootID uint) ([]models.Trade, error)
	// ListChainsByCode returns every chain whose root code contains query
	ListChainsByCode(ctx context.Context, userID uint, query string) ([]models.Trade, error)
	FindWatch(ctx context.Context, userID uint, code string) (*models.Trade, error)
	ListUserIDs(ctx context.Context) ([]uint, error)
}

// UserStore persists journal owners
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
