package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"github.com/sirupsen/logrus"
)

const concessionRefreshJob = "concession-refresh"

// RunConcessionRefresh recomputes stored concession statuses against
// the clock: active grants entering the 90-day window become expiring,
// past-date grants become expired. A redis lock keeps a single runner
// across instances; losing the race is not an error.
func RunConcessionRefresh(ctx context.Context) (int64, error) {
	logger := config.GetLogger()

	lock, err := config.ObtainJobLock(ctx, concessionRefreshJob, time.Minute)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return 0, nil
		}
		config.LogError(logger, "concessionRefresh.go", "RunConcessionRefresh", "ObtainJobLock", concessionRefreshJob, err)
		return 0, err
	}
	defer lock.Release(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	updated, err := models.RefreshConcessionStatuses(tx, time.Now())
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "concessionRefresh.go", "RunConcessionRefresh", "RefreshConcessionStatuses", nil, err)
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	fields := logrus.Fields{"updated": updated}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = correlationId
	}
	logger.WithFields(fields).Info("concession statuses refreshed")
	return updated, nil
}
