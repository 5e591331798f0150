package models

import (
	"context"
	"errors"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarginSettings is the tenant margin policy.
// Thresholds are ordered critical < warning < minimum.
type MarginSettings struct {
	ID                          int             `gorm:"primaryKey" json:"id"`
	AgencyId                    string          `gorm:"size:36;uniqueIndex;not null" json:"agency_id" binding:"required"`
	MinimumMarginPercentage     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"minimum_margin_percentage"`
	WarningMarginPercentage     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"warning_margin_percentage"`
	CriticalMarginPercentage    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"critical_margin_percentage"`
	AlertEnabled                bool            `gorm:"default:true" json:"alert_enabled"`
	BlockNegativeMargin         bool            `gorm:"default:true" json:"block_negative_margin"`
	RequireApprovalForLowMargin bool            `gorm:"default:true" json:"require_approval_for_low_margin"`
	CreatedAt                   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarginLevel classifies a margin percentage against the thresholds.
// A negative margin is always critical.
func (s *MarginSettings) MarginLevel(marginPercentage decimal.Decimal) MarginAlertLevel {
	if !s.AlertEnabled {
		return MarginAlertLevelNone
	}

	switch {
	case marginPercentage.IsNegative():
		return MarginAlertLevelCritical
	case marginPercentage.LessThan(s.CriticalMarginPercentage):
		return MarginAlertLevelCritical
	case marginPercentage.LessThan(s.WarningMarginPercentage):
		return MarginAlertLevelWarning
	case marginPercentage.LessThan(s.MinimumMarginPercentage):
		return MarginAlertLevelInfo
	default:
		return MarginAlertLevelGood
	}
}

func (s *MarginSettings) MarginRequiresApproval(marginPercentage decimal.Decimal) bool {
	if !s.RequireApprovalForLowMargin {
		return false
	}
	level := s.MarginLevel(marginPercentage)
	return level == MarginAlertLevelCritical || level == MarginAlertLevelWarning
}

func (s *MarginSettings) MarginIsAcceptable(marginAmount decimal.Decimal) bool {
	if !s.BlockNegativeMargin {
		return true
	}
	return !marginAmount.IsNegative()
}

// GetMarginSettings returns the tenant policy, or nil when the tenant
// has none configured (alerting then defaults to disabled).
func GetMarginSettings(ctx context.Context, agencyId string) (*MarginSettings, error) {
	db := config.GetDB()
	return GetMarginSettingsTx(db.WithContext(ctx), agencyId)
}

func GetMarginSettingsTx(tx *gorm.DB, agencyId string) (*MarginSettings, error) {
	var settings MarginSettings
	err := tx.Where("agency_id = ?", agencyId).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
