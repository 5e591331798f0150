package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentType is a tenant registry entry naming a document required
// for a service type. The upload/OCR pipeline lives outside this core.
type DocumentType struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	AgencyId     string    `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	Code         string    `gorm:"size:50;not null" json:"code" binding:"required"`
	Name         string    `gorm:"size:150;not null" json:"name" binding:"required"`
	ServiceTypes string    `gorm:"size:100" json:"service_types"`
	Required     bool      `gorm:"default:true" json:"required"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RequiredDocumentTypes returns the codes of the tenant's required
// documents for a service type. An empty service_types column means the
// document applies to every service.
func RequiredDocumentTypes(tx *gorm.DB, agencyId string, serviceType CeremonyType) ([]string, error) {
	var codes []string
	err := tx.Model(&DocumentType{}).
		Where("agency_id = ? AND required = ?", agencyId, true).
		Where("service_types = '' OR FIND_IN_SET(?, service_types)", string(serviceType)).
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Document is a per-case placeholder seeded at creation and filled by
// the external upload pipeline.
type Document struct {
	ID           int            `gorm:"primaryKey" json:"id"`
	AgencyId     string         `gorm:"size:36;index;not null" json:"agency_id" binding:"required"`
	FuneralId    int            `gorm:"index;not null" json:"funeral_id" binding:"required"`
	DocumentType string         `gorm:"size:50;not null" json:"document_type" binding:"required"`
	Status       DocumentStatus `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = DocumentStatusPending
	}
	return nil
}
