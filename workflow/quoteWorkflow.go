package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewQuoteItem struct {
	ProductId    *int            `json:"product_id"`
	ItemType     string          `json:"item_type"`
	Description  string          `json:"description" validate:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Notes        string          `json:"notes"`
}

type QuoteDiscountInput struct {
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
}

// EvaluateQuote returns the full pricing breakdown of a quote without
// touching stored state.
func EvaluateQuote(ctx context.Context, agencyId string, quoteId int) (*models.QuoteEvaluation, error) {
	quote, err := utils.FetchModel[models.Quote](ctx, agencyId, quoteId, "Items")
	if err != nil {
		return nil, &models.NotFoundError{Resource: "quote"}
	}
	settings, err := models.GetMarginSettings(ctx, agencyId)
	if err != nil {
		config.LogError(config.GetLogger(), "quoteWorkflow.go", "EvaluateQuote", "GetMarginSettings", agencyId, err)
		return nil, err
	}
	eval := quote.Evaluate(settings)
	eval.MarginPercentage = utils.RoundPercent(eval.MarginPercentage)
	return &eval, nil
}

// RecalculateQuote recomputes the denormalized totals from the current
// line items and persists them. Called explicitly after every item
// mutation; nothing recalculates implicitly.
func RecalculateQuote(ctx context.Context, agencyId string, quoteId int) (*models.QuoteEvaluation, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := utils.FetchModelTx[models.Quote](tx, agencyId, quoteId, "Items")
	if err != nil {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "quote"}
	}

	eval, err := recalculateQuoteTx(tx, quote)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "RecalculateQuote", "Recalculate", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settings, err := models.GetMarginSettings(ctx, agencyId)
	if err != nil {
		config.LogError(logger, "quoteWorkflow.go", "RecalculateQuote", "GetMarginSettings", agencyId, err)
		return nil, err
	}
	if settings != nil {
		eval.AlertLevel = settings.MarginLevel(eval.MarginPercentage)
	}
	eval.MarginPercentage = utils.RoundPercent(eval.MarginPercentage)
	return &eval, nil
}

// SendQuote marks a draft quote as delivered to the family.
func SendQuote(ctx context.Context, agencyId string, quoteId int) (*models.Quote, error) {
	return moveQuote(ctx, agencyId, quoteId, models.QuoteStatusSent, func(quote *models.Quote, now time.Time) map[string]interface{} {
		return map[string]interface{}{"status": models.QuoteStatusSent, "sent_at": now}
	})
}

// AcceptQuote finalizes a quote. The margin guard runs again inside the
// transaction: a quote that loses money is never accepted while the
// tenant blocks negative margins.
func AcceptQuote(ctx context.Context, agencyId string, quoteId int) (*models.Quote, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := utils.FetchModelTx[models.Quote](tx, agencyId, quoteId, "Items")
	if err != nil {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "quote"}
	}

	now := time.Now()
	if quote.IsExpired(now) {
		tx.Rollback()
		return nil, &models.PolicyViolationError{
			Rule:    "quote_expired",
			Message: "quote validity has expired, issue a new quote",
		}
	}
	if err := quote.Status.ValidateTransition(models.QuoteStatusAccepted); err != nil {
		tx.Rollback()
		return nil, err
	}

	settings, err := models.GetMarginSettingsTx(tx, agencyId)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "AcceptQuote", "GetMarginSettings", agencyId, err)
		return nil, err
	}
	if !quote.CanBeAccepted(settings) {
		tx.Rollback()
		return nil, &models.PolicyViolationError{
			Rule:    "negative_margin",
			Message: "quote cannot be accepted because it has a negative margin",
		}
	}

	if _, err := recalculateQuoteTx(tx, quote); err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "AcceptQuote", "Recalculate", quoteId, err)
		return nil, err
	}
	err = tx.Model(quote).Updates(map[string]interface{}{
		"status":      models.QuoteStatusAccepted,
		"accepted_at": now,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "AcceptQuote", "UpdateStatus", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	quote.Status = models.QuoteStatusAccepted
	quote.AcceptedAt = &now
	return quote, nil
}

// RejectQuote closes a quote with an optional reason.
func RejectQuote(ctx context.Context, agencyId string, quoteId int, reason string) (*models.Quote, error) {
	return moveQuote(ctx, agencyId, quoteId, models.QuoteStatusRejected, func(quote *models.Quote, now time.Time) map[string]interface{} {
		return map[string]interface{}{
			"status":           models.QuoteStatusRejected,
			"rejected_at":      now,
			"rejection_reason": reason,
		}
	})
}

// AddQuoteItem appends a line to a draft quote and recalculates.
func AddQuoteItem(ctx context.Context, agencyId string, quoteId int, input *NewQuoteItem) (*models.Quote, error) {
	if err := validate.Struct(input); err != nil {
		return nil, &models.ValidationError{Message: validationMessage(err)}
	}
	if input.ProductId != nil {
		if err := utils.ValidateResourceId[models.Product](ctx, agencyId, *input.ProductId); err != nil {
			return nil, &models.NotFoundError{Resource: fmt.Sprintf("product %d", *input.ProductId)}
		}
	}

	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := fetchEditableQuote(tx, agencyId, quoteId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	quantity := input.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	itemType := input.ItemType
	if itemType == "" {
		itemType = "service"
	}
	item := models.QuoteItem{
		QuoteId:      quote.ID,
		ProductId:    input.ProductId,
		ItemType:     itemType,
		Description:  input.Description,
		CostPrice:    input.CostPrice,
		SellingPrice: input.SellingPrice,
		Quantity:     quantity,
		Notes:        input.Notes,
	}
	if err := item.Validate(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Create(&item).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "AddQuoteItem", "CreateItem", item, err)
		return nil, err
	}

	quote.Items = append(quote.Items, item)
	if _, err := recalculateQuoteTx(tx, quote); err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "AddQuoteItem", "Recalculate", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return quote, nil
}

// RemoveQuoteItem drops a line from a draft quote and recalculates.
func RemoveQuoteItem(ctx context.Context, agencyId string, quoteId int, itemId int) (*models.Quote, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := fetchEditableQuote(tx, agencyId, quoteId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result := tx.Where("quote_id = ? AND id = ?", quote.ID, itemId).Delete(&models.QuoteItem{})
	if result.Error != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "RemoveQuoteItem", "DeleteItem", itemId, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "quote item"}
	}

	kept := quote.Items[:0]
	for _, item := range quote.Items {
		if item.ID != itemId {
			kept = append(kept, item)
		}
	}
	quote.Items = kept

	if _, err := recalculateQuoteTx(tx, quote); err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "RemoveQuoteItem", "Recalculate", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return quote, nil
}

// ApplyQuoteDiscount sets the discount fields of a draft quote and
// recalculates.
func ApplyQuoteDiscount(ctx context.Context, agencyId string, quoteId int, input *QuoteDiscountInput) (*models.QuoteEvaluation, error) {
	if input.DiscountPercentage.IsNegative() || input.DiscountAmount.IsNegative() {
		return nil, &models.ValidationError{Message: "discount must not be negative"}
	}
	if input.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, &models.ValidationError{Message: "discount percentage must not exceed 100"}
	}

	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := fetchEditableQuote(tx, agencyId, quoteId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	quote.DiscountPercentage = input.DiscountPercentage
	quote.DiscountAmount = input.DiscountAmount
	err = tx.Model(quote).Updates(map[string]interface{}{
		"discount_percentage": input.DiscountPercentage,
		"discount_amount":     input.DiscountAmount,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "ApplyQuoteDiscount", "UpdateDiscount", quoteId, err)
		return nil, err
	}

	eval, err := recalculateQuoteTx(tx, quote)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "ApplyQuoteDiscount", "Recalculate", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	eval.MarginPercentage = utils.RoundPercent(eval.MarginPercentage)
	return &eval, nil
}

// fetchEditableQuote loads a quote whose lines may still change. An
// accepted or rejected quote is immutable.
func fetchEditableQuote(tx *gorm.DB, agencyId string, quoteId int) (*models.Quote, error) {
	quote, err := utils.FetchModelTx[models.Quote](tx, agencyId, quoteId, "Items")
	if err != nil {
		return nil, &models.NotFoundError{Resource: "quote"}
	}
	if quote.Status == models.QuoteStatusAccepted || quote.Status == models.QuoteStatusRejected {
		return nil, &models.PolicyViolationError{
			Rule:    "quote_immutable",
			Message: "a " + string(quote.Status) + " quote can no longer be modified",
		}
	}
	return quote, nil
}

// recalculateQuoteTx writes the denormalized totals computed from the
// quote's loaded items.
func recalculateQuoteTx(tx *gorm.DB, quote *models.Quote) (models.QuoteEvaluation, error) {
	eval := quote.Evaluate(nil)

	quote.TotalCost = eval.TotalCost
	quote.TotalSelling = eval.TotalSelling
	quote.FinalTotal = eval.FinalTotal

	err := tx.Model(quote).Updates(map[string]interface{}{
		"total_cost":    eval.TotalCost,
		"total_selling": eval.TotalSelling,
		"final_total":   eval.FinalTotal,
	}).Error
	if err != nil {
		return eval, err
	}
	return eval, nil
}

func moveQuote(ctx context.Context, agencyId string, quoteId int, target models.QuoteStatus, fields func(*models.Quote, time.Time) map[string]interface{}) (*models.Quote, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	quote, err := utils.FetchModelTx[models.Quote](tx, agencyId, quoteId, "Items")
	if err != nil {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "quote"}
	}
	if err := quote.Status.ValidateTransition(target); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	updates := fields(quote, now)
	if err := tx.Model(quote).Updates(updates).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "quoteWorkflow.go", "moveQuote", "UpdateStatus", quoteId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	quote.Status = target
	switch target {
	case models.QuoteStatusSent:
		quote.SentAt = &now
	case models.QuoteStatusRejected:
		quote.RejectedAt = &now
	}
	return quote, nil
}
