package utils

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

func TestFetchHelperInstantiation(t *testing.T) {
	// The context variant forwards to the transaction variant with an
	// explicit type argument; the instantiated signatures must line up.
	type row struct{ ID int }
	var (
		_ func(context.Context, string, int, ...string) (*row, error) = FetchModel[row]
		_ func(*gorm.DB, string, int, ...string) (*row, error)        = FetchModelTx[row]
		_ func(context.Context, string, ...string) ([]*row, error)    = FetchAllModels[row]
	)
}
