package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TimelineStepResponse struct {
	StepId               int                       `json:"step_id"`
	StepName             string                    `json:"step_name"`
	Status               models.TimelineStepStatus `json:"status"`
	StartedAt            *time.Time                `json:"started_at"`
	CompletedAt          *time.Time                `json:"completed_at"`
	Duration             string                    `json:"duration"`
	CompletionPercentage int                       `json:"completion_percentage"`
}

// StartTimelineStep moves a pending step to in_progress.
func StartTimelineStep(ctx context.Context, agencyId string, stepId int) (*TimelineStepResponse, error) {
	return transitionTimelineStep(ctx, agencyId, stepId, "StartTimelineStep", "", func(step *models.FuneralTimeline, now time.Time) error {
		return step.Start(now)
	})
}

// CompleteTimelineStep finishes a step, optionally appending a note. A
// pending step passes through in_progress so the duration is always
// well defined.
func CompleteTimelineStep(ctx context.Context, agencyId string, stepId int, notes string) (*TimelineStepResponse, error) {
	return transitionTimelineStep(ctx, agencyId, stepId, "CompleteTimelineStep", notes, func(step *models.FuneralTimeline, now time.Time) error {
		return step.Complete(now)
	})
}

// SkipTimelineStep marks a step as not needed for this case.
func SkipTimelineStep(ctx context.Context, agencyId string, stepId int, notes string) (*TimelineStepResponse, error) {
	return transitionTimelineStep(ctx, agencyId, stepId, "SkipTimelineStep", notes, func(step *models.FuneralTimeline, now time.Time) error {
		return step.Skip()
	})
}

func transitionTimelineStep(ctx context.Context, agencyId string, stepId int, funcName string, notes string, move func(*models.FuneralTimeline, time.Time) error) (*TimelineStepResponse, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	step, err := fetchTimelineStepForAgency(tx, agencyId, stepId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	if err := move(step, now); err != nil {
		tx.Rollback()
		return nil, err
	}
	step.Notes = utils.AppendNote(step.Notes, notes)

	err = tx.Model(step).Updates(map[string]interface{}{
		"status":       step.Status,
		"started_at":   step.StartedAt,
		"completed_at": step.CompletedAt,
		"notes":        step.Notes,
	}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "timelineWorkflow.go", funcName, "UpdateStep", stepId, err)
		return nil, err
	}

	var siblings []models.FuneralTimeline
	err = tx.Where("funeral_id = ?", step.FuneralId).Find(&siblings).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "timelineWorkflow.go", funcName, "LoadSiblings", step.FuneralId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	response := TimelineStepResponse{
		StepId:               step.ID,
		Status:               step.Status,
		StartedAt:            step.StartedAt,
		CompletedAt:          step.CompletedAt,
		CompletionPercentage: models.CompletionPercentage(siblings),
	}
	if step.TimelineStep != nil {
		response.StepName = step.TimelineStep.StepName
	}
	if d := step.Duration(); d != nil {
		response.Duration = formatStepDuration(*d)
	}
	return &response, nil
}

// fetchTimelineStepForAgency locks and loads a case step, scoped to the
// tenant through its funeral. Another tenant's step is a not-found.
func fetchTimelineStepForAgency(tx *gorm.DB, agencyId string, stepId int) (*models.FuneralTimeline, error) {
	var step models.FuneralTimeline
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Joins("JOIN funerals ON funerals.id = funeral_timelines.funeral_id").
		Where("funerals.agency_id = ?", agencyId).
		Where("funeral_timelines.id = ?", stepId).
		Preload("TimelineStep").
		First(&step).Error
	if err != nil {
		return nil, &models.NotFoundError{Resource: "timeline step"}
	}
	return &step, nil
}

// formatStepDuration renders an elapsed span like "2h 15m" or "45m".
func formatStepDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
