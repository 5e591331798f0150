package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Agency is the tenant. Every owned row carries agency_id and every
// query filters on it explicitly. The agency row doubles as the
// serialization anchor for per-tenant sequence generation.
type Agency struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	VatNumber string    `gorm:"size:20" json:"vat_number"`
	City      string    `gorm:"size:100" json:"city"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	MarginSettings *MarginSettings `gorm:"foreignKey:AgencyId" json:"margin_settings"`
}

func (a *Agency) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type NewAgency struct {
	Name      string `json:"name" validate:"required"`
	VatNumber string `json:"vat_number"`
	City      string `json:"city"`
}

func CreateAgency(ctx context.Context, input *NewAgency) (*Agency, error) {
	agency := Agency{
		Name:      input.Name,
		VatNumber: input.VatNumber,
		City:      input.City,
	}

	db := config.GetDB()
	// db action
	if err := db.WithContext(ctx).Create(&agency).Error; err != nil {
		return nil, err
	}
	return &agency, nil
}

func GetAgencyById(ctx context.Context, agencyId string) (*Agency, error) {
	db := config.GetDB()
	var agency Agency
	err := db.WithContext(ctx).Where("id = ?", agencyId).First(&agency).Error
	if err != nil {
		return nil, &NotFoundError{Resource: "agency"}
	}
	return &agency, nil
}

// LockAgency takes an exclusive row lock on the tenant anchor.
// It MUST be the first statement of any transaction that allocates a
// sequence number: the lock serializes the read-max/increment/write
// window across concurrent creations for the same tenant.
func LockAgency(tx *gorm.DB, agencyId string) error {
	var agency Agency
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", agencyId).
		First(&agency).Error
	if err != nil {
		return &NotFoundError{Resource: "agency"}
	}
	return nil
}
