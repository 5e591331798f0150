package utils

import (
	"context"
	"fmt"
	"reflect"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"gorm.io/gorm"
)

// check if id exists, using agency_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, agencyId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, agencyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, agencyId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, agencyId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, agencyId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w %s", ErrorDuplicate, column)
	}
	return nil
}

// count records, using WHERE agency_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, agencyId string, condition string, value ...interface{}) (int64, error) {
	db := config.GetDB()
	return ResourceCountWhereTx[T](db.WithContext(ctx), agencyId, condition, value...)
}

// count records inside an existing transaction
func ResourceCountWhereTx[T any](tx *gorm.DB, agencyId string, condition string, value ...interface{}) (int64, error) {
	var model T

	dbCtx := tx.Model(&model)
	var count int64
	if agencyId != "" {
		dbCtx = dbCtx.Where("agency_id = ?", agencyId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
