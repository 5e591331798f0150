package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// QuoteItem is one priced component of a quote.
// Invariants: cost and selling prices >= 0, quantity > 0.
type QuoteItem struct {
	ID           int             `gorm:"primaryKey" json:"id"`
	Uuid         string          `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	QuoteId      int             `gorm:"index;not null" json:"quote_id" binding:"required"`
	ProductId    *int            `json:"product_id"`
	ItemType     string          `gorm:"size:30;not null;default:service" json:"item_type"`
	Description  string          `gorm:"size:255;not null" json:"description" binding:"required"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	Quantity     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:1" json:"quantity"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (item *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	if item.Uuid == "" {
		item.Uuid = uuid.NewString()
	}
	return nil
}

// Validate enforces the line-item invariants.
func (item *QuoteItem) Validate() error {
	if item.CostPrice.IsNegative() {
		return &ValidationError{Message: "cost price must not be negative"}
	}
	if item.SellingPrice.IsNegative() {
		return &ValidationError{Message: "selling price must not be negative"}
	}
	if !item.Quantity.IsPositive() {
		return &ValidationError{Message: "quantity must be greater than zero"}
	}
	return nil
}

func (item *QuoteItem) TotalCost() decimal.Decimal {
	return item.CostPrice.Mul(item.Quantity)
}

func (item *QuoteItem) TotalSelling() decimal.Decimal {
	return item.SellingPrice.Mul(item.Quantity)
}

func (item *QuoteItem) MarginAmount() decimal.Decimal {
	return item.TotalSelling().Sub(item.TotalCost())
}

// MarginPercentage is margin over selling, 0 when nothing is sold.
func (item *QuoteItem) MarginPercentage() decimal.Decimal {
	selling := item.TotalSelling()
	if selling.IsZero() {
		return decimal.Zero
	}
	return item.MarginAmount().Div(selling).Mul(oneHundred)
}
