package models

import (
	"context"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a tenant catalog entry. Retired products are soft-deleted
// and never attach to new quotes.
type Product struct {
	ID           int             `gorm:"primaryKey" json:"id"`
	AgencyId     string          `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	Name         string          `gorm:"size:255;not null" json:"name" binding:"required"`
	ItemType     string          `gorm:"size:30;not null;default:service" json:"item_type"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// FindActiveProducts returns the tenant's non-retired products among ids.
// Soft-deleted rows are excluded by gorm's default scope.
func FindActiveProducts(ctx context.Context, agencyId string, ids []int) ([]Product, error) {
	db := config.GetDB()
	return FindActiveProductsTx(db.WithContext(ctx), agencyId, ids)
}

func FindActiveProductsTx(tx *gorm.DB, agencyId string, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []Product
	err := tx.Where("agency_id = ? AND id IN ?", agencyId, ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
