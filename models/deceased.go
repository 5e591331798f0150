package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Deceased struct {
	ID           int        `gorm:"primaryKey" json:"id"`
	Uuid         string     `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	AgencyId     string     `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	FuneralId    *int       `gorm:"index" json:"funeral_id"`
	FirstName    string     `gorm:"size:100;not null" json:"first_name" binding:"required"`
	LastName     string     `gorm:"size:100;not null" json:"last_name" binding:"required"`
	TaxCode      string     `gorm:"size:16;index;not null" json:"tax_code" binding:"required"`
	BirthDate    *time.Time `json:"birth_date"`
	PlaceOfBirth string     `gorm:"size:100" json:"place_of_birth"`
	DeathDate    time.Time  `gorm:"not null" json:"death_date" binding:"required"`
	PlaceOfDeath string     `gorm:"size:100" json:"place_of_death"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Deceased) TableName() string {
	return "deceased"
}

// NormalizeTaxCode canonicalizes a codice fiscale. Stored rows and
// lookups must both go through this or duplicate checks depend on the
// column collation.
func NormalizeTaxCode(taxCode string) string {
	return strings.ToUpper(strings.TrimSpace(taxCode))
}

func (d *Deceased) BeforeCreate(tx *gorm.DB) error {
	if d.Uuid == "" {
		d.Uuid = uuid.NewString()
	}
	d.TaxCode = NormalizeTaxCode(d.TaxCode)
	return nil
}

func (d *Deceased) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}
