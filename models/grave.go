package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Grave is a burial slot. Occupancy never exceeds MaxBurials; the
// availability rule gates every placement.
type Grave struct {
	ID                 int         `gorm:"primaryKey" json:"id"`
	Uuid               string      `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	CemeteryId         int         `gorm:"not null;index;uniqueIndex:idx_graves_cemetery_registration,priority:1" json:"cemetery_id" binding:"required"`
	GraveNumber        string      `gorm:"size:50;not null" json:"grave_number" binding:"required"`
	GraveType          string      `gorm:"size:30;not null;default:loculo" json:"grave_type"`
	Status             GraveStatus `gorm:"size:20;not null;default:available" json:"status"`
	Row                int         `json:"row"`
	Column             int         `gorm:"column:col" json:"column"`
	MaxBurials         int         `gorm:"not null;default:1" json:"max_burials"`
	CurrentBurials     int         `gorm:"not null;default:0" json:"current_burials"`
	FuneralId          *int        `gorm:"index" json:"funeral_id"`
	RegistrationNumber *string     `gorm:"size:50;uniqueIndex:idx_graves_cemetery_registration,priority:2" json:"registration_number"`
	OccupantName       string      `gorm:"size:200" json:"occupant_name"`
	IntermentDate      *time.Time  `json:"interment_date"`
	Notes              string      `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (g *Grave) BeforeCreate(tx *gorm.DB) error {
	if g.Uuid == "" {
		g.Uuid = uuid.NewString()
	}
	return nil
}

// IsAvailable: a placement is allowed on an available or reserved grave
// with remaining capacity. Occupancy wins over the status label.
func (g *Grave) IsAvailable() bool {
	if g.Status != GraveStatusAvailable && g.Status != GraveStatusReserved {
		return false
	}
	return g.CurrentBurials < g.MaxBurials
}

func (g *Grave) IsFull() bool {
	return g.CurrentBurials >= g.MaxBurials
}

// FetchGraveForAgency fetches a grave scoped to the tenant through its
// cemetery. A grave of another tenant is indistinguishable from a
// missing one.
func FetchGraveForAgency(tx *gorm.DB, agencyId string, graveId int) (*Grave, error) {
	var grave Grave
	err := tx.Joins("JOIN cemeteries ON cemeteries.id = graves.cemetery_id").
		Where("cemeteries.agency_id = ?", agencyId).
		Where("graves.id = ?", graveId).
		First(&grave).Error
	if err != nil {
		return nil, &NotFoundError{Resource: "grave"}
	}
	return &grave, nil
}

// RegistrationNumberInUse checks the cemetery-scoped register for a
// number already assigned to a different grave. The unique index on
// (cemetery_id, registration_number) backs this check under
// concurrency; the column stays NULL until a grave is registered so
// unregistered graves never collide.
func RegistrationNumberInUse(tx *gorm.DB, cemeteryId int, registrationNumber string, exceptGraveId int) (bool, error) {
	var count int64
	err := tx.Model(&Grave{}).
		Where("cemetery_id = ? AND registration_number = ? AND id != ?",
			cemeteryId, registrationNumber, exceptGraveId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
