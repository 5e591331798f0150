package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

type NewDeceasedInput struct {
	FirstName    string     `json:"first_name" validate:"required"`
	LastName     string     `json:"last_name" validate:"required"`
	TaxCode      string     `json:"tax_code" validate:"required,min=11,max=16"`
	BirthDate    *time.Time `json:"birth_date"`
	PlaceOfBirth string     `json:"place_of_birth"`
	DeathDate    time.Time  `json:"death_date" validate:"required"`
	PlaceOfDeath string     `json:"place_of_death"`
}

type NewFuneralCase struct {
	Deceased         NewDeceasedInput `json:"deceased" validate:"required"`
	ServiceType      string           `json:"service_type" validate:"required,oneof=burial cremation entombment"`
	CeremonyDate     *time.Time       `json:"ceremony_date"`
	CeremonyLocation string           `json:"ceremony_location"`
	ProductIds       []int            `json:"product_ids" validate:"omitempty,dive,gt=0"`
	DocumentTypes    []string         `json:"document_types"`
	Notes            string           `json:"notes"`
}

type FuneralCaseResponse struct {
	CaseId         int                      `json:"case_id"`
	Uuid           string                   `json:"uuid"`
	Code           string                   `json:"code"`
	Status         models.FuneralStatus     `json:"status"`
	DeceasedName   string                   `json:"deceased_name"`
	Steps          []models.FuneralTimeline `json:"steps"`
	EstimatedTotal decimal.Decimal          `json:"estimated_total"`
	CreatedAt      time.Time                `json:"created_at"`
}

// CreateFuneral opens a case: deceased, funeral with a fresh sequential
// code, the full timeline from the tenant's templates, an initial quote
// when products are selected, and pending document placeholders. All or
// nothing: any failure rolls everything back.
func CreateFuneral(ctx context.Context, agencyId string, input *NewFuneralCase) (*FuneralCaseResponse, error) {
	logger := config.GetLogger()

	if err := validate.Struct(input); err != nil {
		return nil, &models.ValidationError{Message: validationMessage(err)}
	}
	serviceType, err := models.ParseCeremonyType(input.ServiceType)
	if err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	now := time.Now()
	if input.Deceased.DeathDate.After(now) {
		return nil, &models.ValidationError{Message: "death date cannot be in the future"}
	}
	if input.CeremonyDate != nil && input.CeremonyDate.Before(input.Deceased.DeathDate) {
		return nil, &models.ValidationError{Message: "ceremony date cannot precede the death date"}
	}

	templateCount, err := models.CountActiveTimelineSteps(ctx, agencyId)
	if err != nil {
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "CountActiveTimelineSteps", agencyId, err)
		return nil, err
	}
	if templateCount == 0 {
		return nil, &models.ConfigurationError{
			Message: "no active workflow steps configured, set up the timeline templates before opening cases",
		}
	}

	taxCode := models.NormalizeTaxCode(input.Deceased.TaxCode)
	if err := checkNoOpenCaseForTaxCode(ctx, agencyId, taxCode); err != nil {
		return nil, err
	}

	productIds := utils.UniqueSlice(input.ProductIds)
	products, err := models.FindActiveProducts(ctx, agencyId, productIds)
	if err != nil {
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "FindActiveProducts", productIds, err)
		return nil, err
	}
	if len(products) != len(productIds) {
		found := make(map[int]bool, len(products))
		for _, p := range products {
			found[p.ID] = true
		}
		for _, id := range productIds {
			if !found[id] {
				return nil, &models.NotFoundError{Resource: fmt.Sprintf("product %d", id)}
			}
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	// Lock first: the agency row serializes sequence allocation.
	if err := models.LockAgency(tx, agencyId); err != nil {
		tx.Rollback()
		return nil, err
	}

	deceased := models.Deceased{
		AgencyId:     agencyId,
		FirstName:    input.Deceased.FirstName,
		LastName:     input.Deceased.LastName,
		TaxCode:      taxCode,
		BirthDate:    input.Deceased.BirthDate,
		PlaceOfBirth: input.Deceased.PlaceOfBirth,
		DeathDate:    input.Deceased.DeathDate,
		PlaceOfDeath: input.Deceased.PlaceOfDeath,
	}
	if err := tx.Create(&deceased).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "CreateDeceased", deceased, err)
		return nil, err
	}

	code, err := models.NextFuneralCode(tx, agencyId, now.Year())
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "NextFuneralCode", agencyId, err)
		return nil, err
	}

	funeral := models.Funeral{
		Uuid:             uuid.NewString(),
		AgencyId:         agencyId,
		Code:             code,
		Status:           models.FuneralStatusDraft,
		ServiceType:      serviceType,
		CeremonyDate:     input.CeremonyDate,
		CeremonyLocation: input.CeremonyLocation,
		Notes:            input.Notes,
	}
	if err := tx.Create(&funeral).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "CreateFuneral", funeral, err)
		return nil, err
	}

	if err := tx.Model(&deceased).Update("funeral_id", funeral.ID).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "LinkDeceased", funeral.ID, err)
		return nil, err
	}

	steps, err := funeral.InitializeTimeline(tx)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "InitializeTimeline", funeral.ID, err)
		return nil, err
	}

	estimatedTotal := decimal.Zero
	if len(products) > 0 {
		quote, err := createInitialQuote(tx, agencyId, funeral.ID, now, products)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "CreateInitialQuote", funeral.ID, err)
			return nil, err
		}
		estimatedTotal = quote.FinalTotal
	}

	docTypes := utils.UniqueSlice(input.DocumentTypes)
	if len(docTypes) == 0 {
		docTypes, err = models.RequiredDocumentTypes(tx, agencyId, serviceType)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "RequiredDocumentTypes", serviceType, err)
			return nil, err
		}
	}
	for _, docType := range docTypes {
		document := models.Document{
			AgencyId:     agencyId,
			FuneralId:    funeral.ID,
			DocumentType: docType,
			Status:       models.DocumentStatusPending,
		}
		if err := tx.Create(&document).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "CreateDocument", docType, err)
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "funeralWorkflow.go", "CreateFuneral", "Commit", funeral.ID, err)
		return nil, err
	}

	return &FuneralCaseResponse{
		CaseId:         funeral.ID,
		Uuid:           funeral.Uuid,
		Code:           funeral.Code,
		Status:         funeral.Status,
		DeceasedName:   deceased.FullName(),
		Steps:          steps,
		EstimatedTotal: estimatedTotal,
		CreatedAt:      funeral.CreatedAt,
	}, nil
}

// UpdateFuneralStatus moves a case along its lifecycle. Illegal edges
// fail without touching the row.
func UpdateFuneralStatus(ctx context.Context, agencyId string, funeralId int, target models.FuneralStatus) (*models.Funeral, error) {
	logger := config.GetLogger()

	if _, err := models.ParseFuneralStatus(string(target)); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	funeral, err := utils.FetchModelTx[models.Funeral](tx, agencyId, funeralId)
	if err != nil {
		tx.Rollback()
		return nil, &models.NotFoundError{Resource: "funeral"}
	}
	if err := funeral.Status.ValidateTransition(target); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Model(funeral).Update("status", target).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "funeralWorkflow.go", "UpdateFuneralStatus", "UpdateStatus", funeralId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	funeral.Status = target
	return funeral, nil
}

type FuneralCaseDetail struct {
	Funeral              *models.Funeral `json:"funeral"`
	ActiveQuote          *models.Quote   `json:"active_quote"`
	CompletionPercentage int             `json:"completion_percentage"`
}

// GetFuneralCase loads a case with its deceased, timeline, quotes and
// documents, plus the current quote if one is still in play.
func GetFuneralCase(ctx context.Context, agencyId string, funeralId int) (*FuneralCaseDetail, error) {
	funeral, err := utils.FetchModel[models.Funeral](ctx, agencyId, funeralId,
		"Deceased", "Timeline", "Timeline.TimelineStep", "Quotes", "Documents")
	if err != nil {
		return nil, &models.NotFoundError{Resource: "funeral"}
	}

	db := config.GetDB()
	activeQuote, err := funeral.ActiveQuote(db.WithContext(ctx))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		config.LogError(config.GetLogger(), "funeralWorkflow.go", "GetFuneralCase", "ActiveQuote", funeralId, err)
		return nil, err
	}

	return &FuneralCaseDetail{
		Funeral:              funeral,
		ActiveQuote:          activeQuote,
		CompletionPercentage: models.CompletionPercentage(funeral.Timeline),
	}, nil
}

// ListFuneralCases returns every case of the tenant with the deceased
// loaded.
func ListFuneralCases(ctx context.Context, agencyId string) ([]*models.Funeral, error) {
	funerals, err := utils.FetchAllModels[models.Funeral](ctx, agencyId, "Deceased")
	if err != nil {
		config.LogError(config.GetLogger(), "funeralWorkflow.go", "ListFuneralCases", "FetchAllModels", agencyId, err)
		return nil, err
	}
	return funerals, nil
}

// An open case is any non-finalized funeral; a second case for the same
// tax code while one is open is a duplicate.
func checkNoOpenCaseForTaxCode(ctx context.Context, agencyId string, taxCode string) error {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&models.Deceased{}).
		Joins("JOIN funerals ON funerals.id = deceased.funeral_id").
		Where("deceased.agency_id = ? AND deceased.tax_code = ?", agencyId, taxCode).
		Where("funerals.status NOT IN ?", []models.FuneralStatus{
			models.FuneralStatusCompleted, models.FuneralStatusClosed, models.FuneralStatusArchived,
		}).
		Where("funerals.deleted_at IS NULL").
		Count(&count).Error
	if err != nil {
		config.LogError(config.GetLogger(), "funeralWorkflow.go", "checkNoOpenCaseForTaxCode", "Count", taxCode, err)
		return err
	}
	if count > 0 {
		return &models.DuplicateError{Field: "tax_code", Value: taxCode}
	}
	return nil
}

// createInitialQuote builds the opening quote from the selected catalog
// products, one line each at quantity 1, valid for 30 days. The agency
// lock is already held so the quote number allocation is serialized.
func createInitialQuote(tx *gorm.DB, agencyId string, funeralId int, now time.Time, products []models.Product) (*models.Quote, error) {
	quoteNumber, err := models.NextQuoteNumber(tx, agencyId, now.Year())
	if err != nil {
		return nil, err
	}

	validUntil := now.AddDate(0, 0, 30)
	quote := models.Quote{
		AgencyId:    agencyId,
		QuoteNumber: quoteNumber,
		FuneralId:   funeralId,
		Status:      models.QuoteStatusDraft,
		ValidUntil:  &validUntil,
	}
	if err := tx.Create(&quote).Error; err != nil {
		return nil, err
	}

	items := make([]models.QuoteItem, 0, len(products))
	for _, p := range products {
		item := models.QuoteItem{
			QuoteId:      quote.ID,
			ProductId:    utils.NilIfEmpty(p.ID),
			ItemType:     p.ItemType,
			Description:  p.Name,
			CostPrice:    p.CostPrice,
			SellingPrice: p.SellingPrice,
			Quantity:     decimal.NewFromInt(1),
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}

	quote.Items = items
	if _, err := recalculateQuoteTx(tx, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return fmt.Sprintf("field %s failed validation on %s", first.Field(), first.Tag())
	}
	return err.Error()
}
