// Package repotest provides in-memory stores for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/repository"
)

// TradeStore is a repository.TradeStore backed by a map. Transactions run
// directly against the store.
type TradeStore struct {
	mu     sync.Mutex
	nextID uint
	trades map[uint]models.Trade
	locks  []uint
}

func NewTradeStore() *TradeStore {
	return &TradeStore{nextID: 1, trades: map[uint]models.Trade{}}
}

func (f *TradeStore) Transaction(ctx context.Context, fn func(tx repository.TradeStore) error) error {
	return fn(f)
}

func (f *TradeStore) Create(ctx context.Context, trade *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade.ID = f.nextID
	f.nextID++
	trade.RecomputeTotal()
	f.trades[trade.ID] = *trade
	return nil
}

func (f *TradeStore) Update(ctx context.Context, trade *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade.RecomputeTotal()
	f.trades[trade.ID] = *trade
	return nil
}

func (f *TradeStore) GetByID(ctx context.Context, userID, id uint) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trades[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTradeNotFound
	}
	return &t, nil
}

func (f *TradeStore) LockRoot(ctx context.Context, userID, rootID uint) (*models.Trade, error) {
	t, err := f.GetByID(ctx, userID, rootID)
	if err != nil {
		return nil, err
	}
	if !t.IsRoot() {
		return nil, repository.ErrTradeNotFound
	}
	f.mu.Lock()
	f.locks = append(f.locks, rootID)
	f.mu.Unlock()
	return t, nil
}

func (f *TradeStore) Delete(ctx context.Context, userID, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trades[id]
	if !ok || t.UserID != userID {
		return 0, repository.ErrTradeNotFound
	}
	var n int64
	for key, other := range f.trades {
		if key == id || (t.IsRoot() && other.ParentID != nil && *other.ParentID == id) {
			delete(f.trades, key)
			n++
		}
	}
	return n, nil
}

func (f *TradeStore) ListByUser(ctx context.Context, userID uint) ([]models.Trade, error) {
	return f.filter(func(t models.Trade) bool { return t.UserID == userID }), nil
}

func (f *TradeStore) ListChain(ctx context.Context, userID, rootID uint) ([]models.Trade, error) {
	return f.filter(func(t models.Trade) bool {
		return t.UserID == userID && (t.ID == rootID || (t.ParentID != nil && *t.ParentID == rootID))
	}), nil
}

func (f *TradeStore) ListChainsByCode(ctx context.Context, userID uint, query string) ([]models.Trade, error) {
	roots := map[uint]bool{}
	for _, t := range f.filter(func(t models.Trade) bool { return t.UserID == userID && t.IsRoot() }) {
		if strings.Contains(t.SecurityCode, query) {
			roots[t.ID] = true
		}
	}
	return f.filter(func(t models.Trade) bool {
		return t.UserID == userID && (roots[t.ID] || (t.ParentID != nil && roots[*t.ParentID]))
	}), nil
}

func (f *TradeStore) FindWatch(ctx context.Context, userID uint, code string) (*models.Trade, error) {
	watches := f.filter(func(t models.Trade) bool {
		return t.UserID == userID && t.Kind == models.TradeKindWatch && t.SecurityCode == code
	})
	if len(watches) == 0 {
		return nil, repository.ErrTradeNotFound
	}
	return &watches[0], nil
}

func (f *TradeStore) ListUserIDs(ctx context.Context) ([]uint, error) {
	seen := map[uint]bool{}
	ids := []uint{}
	for _, t := range f.filter(func(models.Trade) bool { return true }) {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *TradeStore) filter(keep func(models.Trade) bool) []models.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Trade{}
	for _, t := range f.trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Locks returns the root ids locked so far
func (f *TradeStore) Locks() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.locks...)
}

// Count returns the number of stored trades
func (f *TradeStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trades)
}

// UserStore is a repository.UserStore backed by a map
type UserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{nextID: 1, users: map[uint]models.User{}}
}

func (f *UserStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = *user
	return nil
}

func (f *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (f *UserStore) GetByUsernameOrEmail(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsernameOrEmail(ctx, username)
	return err == nil, nil
}

func (f *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByUsernameOrEmail(ctx, email)
	return err == nil, nil
}

var (
	_ repository.TradeStore = (*TradeStore)(nil)
	_ repository.UserStore  = (*UserStore)(nil)
)
