package models

import (
	"time"

	"gorm.io/gorm"
)

// Cemetery groups graves. Registration numbers are unique within a
// cemetery, not within the tenant: one agency may run several
// cemeteries with independent registers.
type Cemetery struct {
	ID        int            `gorm:"primaryKey" json:"id"`
	AgencyId  string         `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	Name      string         `gorm:"size:255;not null" json:"name" binding:"required"`
	City      string         `gorm:"size:100" json:"city"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Graves []Grave `gorm:"foreignKey:CemeteryId" json:"graves"`
}
