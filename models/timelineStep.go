package models

import (
	"context"
	"errors"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"gorm.io/gorm"
)

// TimelineStep is a tenant-configured workflow step template. A case's
// timeline is instantiated from the active templates at creation time.
type TimelineStep struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	AgencyId  string    `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	StepName  string    `gorm:"size:150;not null" json:"step_name" binding:"required"`
	StepOrder int       `gorm:"not null" json:"step_order"`
	Required  bool      `gorm:"default:true" json:"required"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTimelineStep struct {
	StepName  string `json:"step_name" validate:"required"`
	StepOrder int    `json:"step_order" validate:"gte=0"`
	Required  *bool  `json:"required"`
}

func CreateTimelineStep(ctx context.Context, agencyId string, input *NewTimelineStep) (*TimelineStep, error) {
	// step name is unique within the tenant
	if err := utils.ValidateUnique[TimelineStep](ctx, agencyId, "step_name", input.StepName, 0); err != nil {
		if errors.Is(err, utils.ErrorDuplicate) {
			return nil, &DuplicateError{Field: "step_name", Value: input.StepName}
		}
		return nil, err
	}

	step := TimelineStep{
		AgencyId:  agencyId,
		StepName:  input.StepName,
		StepOrder: input.StepOrder,
		Required:  utils.DereferencePtr(input.Required, true),
		Active:    true,
	}

	db := config.GetDB()
	// db action
	if err := db.WithContext(ctx).Create(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func CountActiveTimelineSteps(ctx context.Context, agencyId string) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&TimelineStep{}).
		Where("agency_id = ? AND active = ?", agencyId, true).
		Count(&count).Error
	return count, err
}

// ActiveTimelineSteps returns the tenant's active templates in configured order.
func ActiveTimelineSteps(tx *gorm.DB, agencyId string) ([]TimelineStep, error) {
	var steps []TimelineStep
	err := tx.Where("agency_id = ? AND active = ?", agencyId, true).
		Order("step_order").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}
