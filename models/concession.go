package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Valid concession durations in years. 99 denotes a perpetual grant.
const PerpetualConcessionYears = 99

var validConcessionYears = []int{10, 20, 30, PerpetualConcessionYears}

// ValidateConcessionYears rejects any duration outside the regulatory set.
func ValidateConcessionYears(years int) error {
	for _, v := range validConcessionYears {
		if years == v {
			return nil
		}
	}
	return &PolicyViolationError{
		Rule:    "concession_years",
		Message: fmt.Sprintf("concession years must be one of 10, 20, 30 or 99 (perpetual), got %d", years),
	}
}

// CalculateConcessionExpiry returns start + years, or nil for a
// perpetual concession.
func CalculateConcessionExpiry(start time.Time, years int) *time.Time {
	if years == PerpetualConcessionYears {
		return nil
	}
	expiry := start.AddDate(years, 0, 0)
	return &expiry
}

// Concession is the burial-rights grant for a grave.
type Concession struct {
	ID                    int              `gorm:"primaryKey" json:"id"`
	Uuid                  string           `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	GraveId               int              `gorm:"index;not null" json:"grave_id" binding:"required"`
	ConcessionaireName    string           `gorm:"size:200" json:"concessionaire_name"`
	ConcessionaireTaxCode string           `gorm:"size:16" json:"concessionaire_tax_code"`
	ConcessionDate        time.Time        `gorm:"not null" json:"concession_date"`
	ExpiryDate            *time.Time       `json:"expiry_date"`
	DurationYears         int              `gorm:"not null" json:"duration_years"`
	RenewalCount          int              `gorm:"not null;default:0" json:"renewal_count"`
	LastRenewalDate       *time.Time       `json:"last_renewal_date"`
	Status                ConcessionStatus `gorm:"size:20;not null;default:active" json:"status"`
	FeePaid               decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"fee_paid"`
	Notes                 string           `gorm:"type:text" json:"notes"`
	CreatedAt             time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (c *Concession) BeforeCreate(tx *gorm.DB) error {
	if c.Uuid == "" {
		c.Uuid = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ConcessionStatusActive
	}
	return nil
}

func (c *Concession) IsPerpetual() bool {
	return c.ExpiryDate == nil
}

// DaysUntilExpiry is negative once past expiry; perpetual grants never
// expire and report a zero, false pair.
func (c *Concession) DaysUntilExpiry(now time.Time) (int, bool) {
	if c.ExpiryDate == nil {
		return 0, false
	}
	return int(c.ExpiryDate.Sub(now).Hours() / 24), true
}

// StatusAsOf derives the lifecycle status from the expiry date.
// Termination is sticky; perpetual grants stay active forever.
// The expiring window opens 90 days before expiry.
func (c *Concession) StatusAsOf(now time.Time) ConcessionStatus {
	if c.Status == ConcessionStatusTerminated {
		return ConcessionStatusTerminated
	}
	if c.ExpiryDate == nil {
		return ConcessionStatusActive
	}
	days, _ := c.DaysUntilExpiry(now)
	switch {
	case !c.ExpiryDate.After(now):
		return ConcessionStatusExpired
	case days <= 90:
		return ConcessionStatusExpiring
	default:
		return ConcessionStatusActive
	}
}

// Renew extends the grant. Terminated grants cannot be renewed and
// perpetual ones have nothing to extend.
func (c *Concession) Renew(additionalYears int, now time.Time) error {
	if c.Status == ConcessionStatusTerminated {
		return &PolicyViolationError{
			Rule:    "concession_renewal",
			Message: "a terminated concession cannot be renewed",
		}
	}
	if c.IsPerpetual() {
		return &PolicyViolationError{
			Rule:    "concession_renewal",
			Message: "a perpetual concession does not need renewal",
		}
	}
	if additionalYears <= 0 {
		return &ValidationError{Message: "additional years must be greater than zero"}
	}

	newExpiry := c.ExpiryDate.AddDate(additionalYears, 0, 0)
	c.ExpiryDate = &newExpiry
	c.DurationYears += additionalYears
	c.RenewalCount++
	c.LastRenewalDate = &now
	c.Status = ConcessionStatusActive
	return nil
}

// Terminate ends the grant; the caller is responsible for freeing the
// grave in the same transaction.
func (c *Concession) Terminate(reason string) error {
	if c.Status == ConcessionStatusTerminated {
		return &PolicyViolationError{
			Rule:    "concession_termination",
			Message: "concession is already terminated",
		}
	}
	c.Status = ConcessionStatusTerminated
	if reason != "" {
		if c.Notes != "" {
			c.Notes += "\n\n"
		}
		c.Notes += "Cessata: " + reason
	}
	return nil
}

// FetchConcessionForAgency loads a concession scoped to the tenant
// through its grave's cemetery.
func FetchConcessionForAgency(tx *gorm.DB, agencyId string, concessionId int) (*Concession, error) {
	var concession Concession
	err := tx.Joins("JOIN graves ON graves.id = concessions.grave_id").
		Joins("JOIN cemeteries ON cemeteries.id = graves.cemetery_id").
		Where("cemeteries.agency_id = ?", agencyId).
		Where("concessions.id = ?", concessionId).
		First(&concession).Error
	if err != nil {
		return nil, &NotFoundError{Resource: "concession"}
	}
	return &concession, nil
}

// RefreshConcessionStatuses flips active grants into the expiring
// window and expired grants past their date, in bulk. Runs out-of-band
// (cmd/concession-refresh), never on the request path.
func RefreshConcessionStatuses(tx *gorm.DB, now time.Time) (int64, error) {
	windowEnd := now.AddDate(0, 0, 90)

	expiring := tx.Model(&Concession{}).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date > ? AND expiry_date <= ?",
			ConcessionStatusActive, now, windowEnd).
		Update("status", ConcessionStatusExpiring)
	if expiring.Error != nil {
		return 0, expiring.Error
	}

	expired := tx.Model(&Concession{}).
		Where("status IN ? AND expiry_date IS NOT NULL AND expiry_date <= ?",
			[]ConcessionStatus{ConcessionStatusActive, ConcessionStatusExpiring}, now).
		Update("status", ConcessionStatusExpired)
	if expired.Error != nil {
		return 0, expired.Error
	}

	return expiring.RowsAffected + expired.RowsAffected, nil
}
