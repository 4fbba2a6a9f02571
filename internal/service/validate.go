package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trade-journal/internal/company"
	"github.com/trade-journal/internal/models"
)

// ValidationError rejects a write because of one malformed field
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TradeInput is a journal record as submitted by a form or JSON body.
// Every field is a string so that bad numbers surface as ValidationError
// rather than as binding failures.
type TradeInput struct {
	Kind         string `json:"kind" form:"kind"`
	SecurityName string `json:"security_name" form:"security_name"`
	SecurityCode string `json:"security_code" form:"security_code"`
	Price        string `json:"price" form:"price"`
	Quantity     string `json:"quantity" form:"quantity"`
	TradeDate    string `json:"trade_date" form:"trade_date"`
	Emotion      string `json:"emotion" form:"emotion"`
	Memo         string `json:"memo" form:"memo"`
	Purpose      string `json:"purpose" form:"purpose"`
	ParentID     string `json:"parent_id" form:"parent_id"`
}

// ParseTradeInput converts raw input into a trade. Emotion and purpose never
// fail: missing or non-numeric values fall back to neutral and 0.
func ParseTradeInput(in TradeInput) (*models.Trade, error) {
	kind := models.TradeKind(strings.ToLower(strings.TrimSpace(in.Kind)))
	if !kind.Valid() {
		return nil, invalid("kind", "must be buy, sell or watch")
	}

	t := &models.Trade{
		Kind:         kind,
		SecurityName: strings.TrimSpace(in.SecurityName),
		SecurityCode: company.NormalizeCode(in.SecurityCode),
		Memo:         strings.TrimSpace(in.Memo),
		Emotion:      parseEmotion(in.Emotion),
		Purpose:      parsePurpose(in.Purpose),
		Price:        decimal.Zero,
	}

	priceRaw := strings.TrimSpace(in.Price)
	switch {
	case priceRaw != "":
		price, err := decimal.NewFromString(priceRaw)
		if err != nil {
			return nil, invalid("price", "not a number")
		}
		if price.IsNegative() {
			return nil, invalid("price", "must not be negative")
		}
		t.Price = price
	case kind != models.TradeKindWatch:
		return nil, invalid("price", "required")
	}

	qtyRaw := strings.TrimSpace(in.Quantity)
	switch {
	case qtyRaw != "":
		qty, err := strconv.ParseInt(qtyRaw, 10, 64)
		if err != nil {
			return nil, invalid("quantity", "not an integer")
		}
		if qty < 0 {
			return nil, invalid("quantity", "must not be negative")
		}
		if qty == 0 && kind != models.TradeKindWatch {
			return nil, invalid("quantity", "must be positive")
		}
		t.Quantity = qty
	case kind != models.TradeKindWatch:
		return nil, invalid("quantity", "required")
	}

	date := strings.TrimSpace(in.TradeDate)
	if date == "" {
		return nil, invalid("trade_date", "required")
	}
	if _, err := time.Parse(models.TradeDateLayout, date); err != nil {
		return nil, invalid("trade_date", "must be YYYY-MM-DD")
	}
	t.TradeDate = date

	if raw := strings.TrimSpace(in.ParentID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, invalid("parent_id", "not a record id")
		}
		parentID := uint(id)
		t.ParentID = &parentID
	}

	t.RecomputeTotal()
	return t, nil
}

func parseEmotion(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return models.EmotionNeutral
	}
	return models.ClampEmotion(v)
}

func parsePurpose(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
