package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is a priced proposal for a case. The number is unique per
// tenant; once accepted the quote is immutable except for its status.
// Totals are denormalized and refreshed by the explicit recalculation
// in the quote workflow after any line-item mutation.
type Quote struct {
	ID                 int             `gorm:"primaryKey" json:"id"`
	Uuid               string          `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	AgencyId           string          `gorm:"size:36;not null;index:idx_quotes_agency_number,unique,priority:1" json:"agency_id" binding:"required"`
	QuoteNumber        string          `gorm:"size:20;not null;index:idx_quotes_agency_number,unique,priority:2" json:"quote_number"`
	FuneralId          int             `gorm:"index;not null" json:"funeral_id" binding:"required"`
	Status             QuoteStatus     `gorm:"size:20;not null;default:draft" json:"status"`
	ValidUntil         *time.Time      `json:"valid_until"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TotalCost          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_cost"`
	TotalSelling       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_selling"`
	FinalTotal         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"final_total"`
	SentAt             *time.Time      `json:"sent_at"`
	AcceptedAt         *time.Time      `json:"accepted_at"`
	RejectedAt         *time.Time      `json:"rejected_at"`
	RejectionReason    string          `gorm:"size:255" json:"rejection_reason"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`

	Items []QuoteItem `gorm:"foreignKey:QuoteId" json:"items"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.Uuid == "" {
		q.Uuid = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = QuoteStatusDraft
	}
	return nil
}

// QuoteEvaluation is the pricing breakdown computed from the loaded items.
type QuoteEvaluation struct {
	TotalCost        decimal.Decimal  `json:"total_cost"`
	TotalSelling     decimal.Decimal  `json:"total_selling"`
	DiscountApplied  decimal.Decimal  `json:"discount_applied"`
	FinalTotal       decimal.Decimal  `json:"final_total"`
	MarginAmount     decimal.Decimal  `json:"margin_amount"`
	MarginPercentage decimal.Decimal  `json:"margin_percentage"`
	AlertLevel       MarginAlertLevel `json:"alert_level"`
}

// Evaluate computes the full pricing breakdown over q.Items.
// The margin percentage uses the discounted final total as denominator,
// not the gross selling total. A nil settings row disables alerting.
func (q *Quote) Evaluate(settings *MarginSettings) QuoteEvaluation {
	totalCost := decimal.Zero
	totalSelling := decimal.Zero
	for i := range q.Items {
		totalCost = totalCost.Add(q.Items[i].TotalCost())
		totalSelling = totalSelling.Add(q.Items[i].TotalSelling())
	}

	discountApplied := totalSelling.Mul(q.DiscountPercentage).Div(oneHundred).
		Add(q.DiscountAmount)

	finalTotal := totalSelling.Sub(discountApplied)
	if finalTotal.IsNegative() {
		finalTotal = decimal.Zero
	}

	marginAmount := finalTotal.Sub(totalCost)
	marginPercentage := decimal.Zero
	if !finalTotal.IsZero() {
		marginPercentage = marginAmount.Div(finalTotal).Mul(oneHundred)
	}

	alertLevel := MarginAlertLevelNone
	if settings != nil {
		alertLevel = settings.MarginLevel(marginPercentage)
	}

	return QuoteEvaluation{
		TotalCost:        totalCost,
		TotalSelling:     totalSelling,
		DiscountApplied:  discountApplied,
		FinalTotal:       finalTotal,
		MarginAmount:     marginAmount,
		MarginPercentage: marginPercentage,
		AlertLevel:       alertLevel,
	}
}

// RequiresApproval is true when the margin is in the warning band and
// the tenant policy demands sign-off on low margins.
func (q *Quote) RequiresApproval(settings *MarginSettings) bool {
	if settings == nil {
		return false
	}
	eval := q.Evaluate(settings)
	return settings.MarginRequiresApproval(eval.MarginPercentage)
}

// CanBeAccepted is false when the tenant blocks negative margins and
// this quote loses money.
func (q *Quote) CanBeAccepted(settings *MarginSettings) bool {
	if settings == nil {
		return true
	}
	eval := q.Evaluate(settings)
	return settings.MarginIsAcceptable(eval.MarginAmount)
}

func (q *Quote) IsExpired(now time.Time) bool {
	if q.ValidUntil == nil {
		return false
	}
	return q.ValidUntil.Before(now)
}
