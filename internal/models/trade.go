package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeKind represents the kind of a journal record
type TradeKind string

const (
	TradeKindBuy   TradeKind = "buy"
	TradeKindSell  TradeKind = "sell"
	TradeKindWatch TradeKind = "watch" // placeholder, no quantity or price effect
)

// Valid reports whether k is a known kind
func (k TradeKind) Valid() bool {
	return k == TradeKindBuy || k == TradeKindSell || k == TradeKindWatch
}

// Opposite returns the kind that closes a position opened by k.
// Watch has no opposite.
func (k TradeKind) Opposite() TradeKind {
	switch k {
	case TradeKindBuy:
		return TradeKindSell
	case TradeKindSell:
		return TradeKindBuy
	}
	return ""
}

// Emotion bounds. Labels are indexed by these values.
const (
	EmotionMin     = 0
	EmotionMax     = 4
	EmotionNeutral = 2
)

// EntryEmotions and ExitEmotions label the emotion scale for entries and exits
var (
	EntryEmotions = [EmotionMax + 1]string{"fear", "anxiety", "neutral", "confident", "impatience"}
	ExitEmotions  = [EmotionMax + 1]string{"impatience", "anxiety", "neutral", "relief", "excitement"}
)

// ClampEmotion forces v into [EmotionMin, EmotionMax]
func ClampEmotion(v int) int {
	if v < EmotionMin {
		return EmotionMin
	}
	if v > EmotionMax {
		return EmotionMax
	}
	return v
}

// TradeDateLayout is the calendar date format of TradeDate
const TradeDateLayout = "2006-01-02"

// PricePlaces is the scale of stored prices. Computed averages and profits
// are kept at full precision and rounded to this scale only when shown.
const PricePlaces = 4

// Trade is one journal record. A record with a nil ParentID is the root of a
// position chain; follow-on records point at their root.
type Trade struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	Kind         TradeKind       `gorm:"size:10;not null" json:"kind"`
	SecurityName string          `gorm:"size:100" json:"security_name"`
	SecurityCode string          `gorm:"size:20;index" json:"security_code"`
	Price        decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"price"`
	Quantity     int64           `gorm:"not null;default:0" json:"quantity"`
	Total        decimal.Decimal `gorm:"type:numeric(24,4);not null;default:0" json:"total"`
	TradeDate    string          `gorm:"size:10;index" json:"trade_date"`
	Emotion      int             `gorm:"not null;default:2" json:"emotion"`
	Memo         string          `gorm:"type:text" json:"memo"`
	Purpose      int             `gorm:"not null;default:0" json:"purpose"`
	ParentID     *uint           `gorm:"index" json:"parent_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// IsRoot returns true if the record opens a position chain
func (t *Trade) IsRoot() bool {
	return t.ParentID == nil
}

// RecomputeTotal sets Total to Price x Quantity
func (t *Trade) RecomputeTotal() {
	t.Total = t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// BeforeSave keeps Total in sync with Price and Quantity on every write
func (t *Trade) BeforeSave(tx *gorm.DB) error {
	t.RecomputeTotal()
	return nil
}

// Date parses TradeDate
func (t *Trade) Date() (time.Time, error) {
	return time.Parse(TradeDateLayout, t.TradeDate)
}
