package utils

import (
	"context"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (agency_id goes in the query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, agencyId string, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	return FetchModelTx[T](db.WithContext(ctx), agencyId, id, associations...)
}

// fetch model inside an existing transaction
// (agency_id goes in the query's WHERE, may return RecordNotFound)
func FetchModelTx[T any](tx *gorm.DB, agencyId string, id int, associations ...string) (*T, error) {
	dbCtx := tx.Where("agency_id = ?", agencyId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models from db
// (agency_id goes in the query's WHERE)
func FetchAllModels[T any](ctx context.Context, agencyId string, associations ...string) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("agency_id = ?", agencyId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
