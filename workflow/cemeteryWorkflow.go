package workflow

import (
	"context"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type NewCemeteryRegistration struct {
	FuneralId             int             `json:"funeral_id" validate:"required,gt=0"`
	GraveId               int             `json:"grave_id" validate:"required,gt=0"`
	IntermentDate         time.Time       `json:"interment_date" validate:"required"`
	ConcessionYears       int             `json:"concession_years" validate:"required"`
	RegistrationNumber    string          `json:"registration_number" validate:"required"`
	ConcessionaireName    string          `json:"concessionaire_name"`
	ConcessionaireTaxCode string          `json:"concessionaire_tax_code"`
	ConcessionFee         decimal.Decimal `json:"concession_fee"`
	Notes                 string          `json:"notes"`
}

type CemeteryRegistrationResponse struct {
	GraveId             int       `json:"grave_id"`
	GraveNumber         string    `json:"grave_number"`
	RegistrationNumber  string    `json:"registration_number"`
	DeceasedName        string    `json:"deceased_name"`
	ConcessionId        int       `json:"concession_id"`
	ConcessionExpiresAt string    `json:"concession_expires_at"`
	RegisteredAt        time.Time `json:"registered_at"`
}

// RegisterCemeteryDeath places a case's deceased into a grave: marks it
// occupied, writes the cemetery register entry and opens the burial
// concession, all in one transaction. Availability is re-checked on the
// locked row so two concurrent placements cannot share the last slot.
func RegisterCemeteryDeath(ctx context.Context, agencyId string, input *NewCemeteryRegistration) (*CemeteryRegistrationResponse, error) {
	logger := config.GetLogger()

	if err := validate.Struct(input); err != nil {
		return nil, &models.ValidationError{Message: validationMessage(err)}
	}
	if err := models.ValidateConcessionYears(input.ConcessionYears); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	funeral, err := utils.FetchModelTx[models.Funeral](tx, agencyId, input.FuneralId, "Deceased")
	if err != nil {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "funeral"}
	}
	if funeral.Deceased == nil {
		tx.Rollback()
		return nil, &models.ValidationError{Message: "case has no deceased on record"}
	}
	if input.IntermentDate.Before(funeral.Deceased.DeathDate) {
		tx.Rollback()
		return nil, &models.ValidationError{Message: "interment date cannot precede the death date"}
	}

	grave, err := models.FetchGraveForAgency(
		tx.Clauses(clause.Locking{Strength: "UPDATE"}), agencyId, input.GraveId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !grave.IsAvailable() {
		tx.Rollback()
		message := "grave " + grave.GraveNumber + " is not available for burial"
		if grave.IsFull() {
			message = "grave " + grave.GraveNumber + " is at full capacity"
		}
		return nil, &models.PolicyViolationError{
			Rule:    "grave_not_available",
			Message: message,
		}
	}

	inUse, err := models.RegistrationNumberInUse(tx, grave.CemeteryId, input.RegistrationNumber, grave.ID)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "RegisterCemeteryDeath", "RegistrationNumberInUse", input.RegistrationNumber, err)
		return nil, err
	}
	if inUse {
		tx.Rollback()
		return nil, &models.DuplicateError{Field: "registration_number", Value: input.RegistrationNumber}
	}

	now := time.Now()
	deceasedName := funeral.Deceased.FullName()
	err = tx.Model(grave).Updates(map[string]interface{}{
		"status":              models.GraveStatusOccupied,
		"current_burials":     grave.CurrentBurials + 1,
		"funeral_id":          funeral.ID,
		"registration_number": input.RegistrationNumber,
		"occupant_name":       deceasedName,
		"interment_date":      input.IntermentDate,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "RegisterCemeteryDeath", "UpdateGrave", grave.ID, err)
		return nil, err
	}

	err = tx.Model(funeral).Updates(map[string]interface{}{
		"grave_id":       grave.ID,
		"interment_date": input.IntermentDate,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "RegisterCemeteryDeath", "UpdateFuneral", funeral.ID, err)
		return nil, err
	}

	concession := models.Concession{
		GraveId:               grave.ID,
		ConcessionaireName:    input.ConcessionaireName,
		ConcessionaireTaxCode: input.ConcessionaireTaxCode,
		ConcessionDate:        utils.TruncateToDate(input.IntermentDate),
		ExpiryDate:            models.CalculateConcessionExpiry(input.IntermentDate, input.ConcessionYears),
		DurationYears:         input.ConcessionYears,
		Status:                models.ConcessionStatusActive,
		FeePaid:               input.ConcessionFee,
		Notes:                 input.Notes,
	}
	if err := tx.Create(&concession).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "RegisterCemeteryDeath", "CreateConcession", concession, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	expiresAt := "Perpetual"
	if concession.ExpiryDate != nil {
		expiresAt = concession.ExpiryDate.Format("2006-01-02")
	}
	return &CemeteryRegistrationResponse{
		GraveId:             grave.ID,
		GraveNumber:         grave.GraveNumber,
		RegistrationNumber:  input.RegistrationNumber,
		DeceasedName:        deceasedName,
		ConcessionId:        concession.ID,
		ConcessionExpiresAt: expiresAt,
		RegisteredAt:        now,
	}, nil
}

// RenewConcession extends a concession by a further valid duration.
func RenewConcession(ctx context.Context, agencyId string, concessionId int, additionalYears int) (*models.Concession, error) {
	logger := config.GetLogger()

	if err := models.ValidateConcessionYears(additionalYears); err != nil {
		return nil, err
	}
	if additionalYears == models.PerpetualConcessionYears {
		return nil, &models.PolicyViolationError{
			Rule:    "concession_renewal",
			Message: "a renewal cannot convert a concession to perpetual",
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	concession, err := models.FetchConcessionForAgency(
		tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "concessions"}}), agencyId, concessionId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	if err := concession.Renew(additionalYears, now); err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.Model(concession).Updates(map[string]interface{}{
		"expiry_date":       concession.ExpiryDate,
		"duration_years":    concession.DurationYears,
		"renewal_count":     concession.RenewalCount,
		"last_renewal_date": concession.LastRenewalDate,
		"status":            concession.Status,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "RenewConcession", "UpdateConcession", concessionId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return concession, nil
}

// TerminateConcession ends the grant and frees its grave back to the
// available pool.
func TerminateConcession(ctx context.Context, agencyId string, concessionId int, reason string) (*models.Concession, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	concession, err := models.FetchConcessionForAgency(
		tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "concessions"}}), agencyId, concessionId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := concession.Terminate(reason); err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.Model(concession).Updates(map[string]interface{}{
		"status": concession.Status,
		"notes":  concession.Notes,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "TerminateConcession", "UpdateConcession", concessionId, err)
		return nil, err
	}

	grave, err := models.FetchGraveForAgency(
		tx.Clauses(clause.Locking{Strength: "UPDATE"}), agencyId, concession.GraveId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	burials := grave.CurrentBurials - 1
	if burials < 0 {
		burials = 0
	}
	err = tx.Model(grave).Updates(map[string]interface{}{
		"status":          models.GraveStatusAvailable,
		"current_burials": burials,
		"funeral_id":      nil,
		"occupant_name":   "",
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cemeteryWorkflow.go", "TerminateConcession", "FreeGrave", grave.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return concession, nil
}
