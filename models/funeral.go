package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Funeral is one service engagement (the case). Its code is unique per
// tenant and allocated under the agency sequence lock.
type Funeral struct {
	ID               int           `gorm:"primaryKey" json:"id"`
	Uuid             string        `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	AgencyId         string        `gorm:"size:36;not null;index:idx_funerals_agency_code,unique,priority:1" json:"agency_id" binding:"required"`
	Code             string        `gorm:"size:20;not null;index:idx_funerals_agency_code,unique,priority:2" json:"code"`
	Status           FuneralStatus `gorm:"size:20;not null;default:draft" json:"status"`
	ServiceType      CeremonyType  `gorm:"size:20;not null" json:"service_type" binding:"required"`
	CeremonyDate     *time.Time    `json:"ceremony_date"`
	CeremonyLocation string        `gorm:"size:255" json:"ceremony_location"`
	IntermentDate    *time.Time    `json:"interment_date"`
	GraveId          *int          `gorm:"index" json:"grave_id"`
	Notes            string        `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Deceased  *Deceased         `gorm:"foreignKey:FuneralId" json:"deceased"`
	Timeline  []FuneralTimeline `gorm:"foreignKey:FuneralId" json:"timeline"`
	Quotes    []Quote           `gorm:"foreignKey:FuneralId" json:"quotes"`
	Documents []Document        `gorm:"foreignKey:FuneralId" json:"documents"`
}

func (f *Funeral) BeforeCreate(tx *gorm.DB) error {
	if f.Uuid == "" {
		f.Uuid = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FuneralStatusDraft
	}
	return nil
}

func (f *Funeral) IsEditable() bool {
	return f.Status.IsEditable()
}

// InitializeTimeline instantiates one pending step per active template,
// in template order. Called once, inside the creation transaction.
func (f *Funeral) InitializeTimeline(tx *gorm.DB) ([]FuneralTimeline, error) {
	templates, err := ActiveTimelineSteps(tx, f.AgencyId)
	if err != nil {
		return nil, err
	}

	steps := make([]FuneralTimeline, 0, len(templates))
	for _, tmpl := range templates {
		steps = append(steps, FuneralTimeline{
			FuneralId:      f.ID,
			TimelineStepId: tmpl.ID,
			Status:         TimelineStepStatusPending,
		})
	}
	if len(steps) == 0 {
		return steps, nil
	}
	if err := tx.Create(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

// ActiveQuote is the case's current quote: the latest one not rejected.
func (f *Funeral) ActiveQuote(tx *gorm.DB) (*Quote, error) {
	var quote Quote
	err := tx.Where("funeral_id = ? AND status IN ?", f.ID,
		[]QuoteStatus{QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted}).
		Order("id DESC").
		Preload("Items").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
