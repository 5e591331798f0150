package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FuneralTimeline is one instantiated workflow step of a case. Rows are
// created only at funeral creation (one per active template) and are
// never added or removed afterwards, only transitioned.
type FuneralTimeline struct {
	ID             int                `gorm:"primaryKey" json:"id"`
	Uuid           string             `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	FuneralId      int                `gorm:"index;not null" json:"funeral_id" binding:"required"`
	TimelineStepId int                `gorm:"not null" json:"timeline_step_id" binding:"required"`
	Status         TimelineStepStatus `gorm:"size:20;not null;default:pending" json:"status"`
	StartedAt      *time.Time         `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at"`
	Notes          string             `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	TimelineStep *TimelineStep `gorm:"foreignKey:TimelineStepId" json:"timeline_step"`
}

func (t *FuneralTimeline) BeforeCreate(tx *gorm.DB) error {
	if t.Uuid == "" {
		t.Uuid = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TimelineStepStatusPending
	}
	return nil
}

// Start moves the step to in_progress. The start timestamp is set only
// by this transition and only once.
func (t *FuneralTimeline) Start(now time.Time) error {
	if err := t.Status.ValidateTransition(TimelineStepStatusInProgress); err != nil {
		return err
	}
	t.Status = TimelineStepStatusInProgress
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	return nil
}

// Complete moves the step to completed, auto-passing through
// in_progress when it is still pending so a completed step always has a
// start timestamp. Terminal steps are rejected.
func (t *FuneralTimeline) Complete(now time.Time) error {
	if t.Status.IsTerminal() {
		return &InvalidStepStateError{Current: string(t.Status)}
	}
	if t.Status == TimelineStepStatusPending {
		if err := t.Start(now); err != nil {
			return err
		}
	}
	if err := t.Status.ValidateTransition(TimelineStepStatusCompleted); err != nil {
		return err
	}
	t.Status = TimelineStepStatusCompleted
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	return nil
}

// Skip marks an optional step as not needed. Only pending steps can be
// skipped.
func (t *FuneralTimeline) Skip() error {
	if t.Status.IsTerminal() {
		return &InvalidStepStateError{Current: string(t.Status)}
	}
	if err := t.Status.ValidateTransition(TimelineStepStatusSkipped); err != nil {
		return err
	}
	t.Status = TimelineStepStatusSkipped
	return nil
}

// Duration is the elapsed span between start and completion, nil until
// both timestamps exist.
func (t *FuneralTimeline) Duration() *time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return nil
	}
	d := t.CompletedAt.Sub(*t.StartedAt)
	return &d
}

// CompletionPercentage over a case's timeline, 0 for an empty slice.
func CompletionPercentage(steps []FuneralTimeline) int {
	if len(steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range steps {
		if s.Status == TimelineStepStatusCompleted {
			completed++
		}
	}
	return int(float64(completed)/float64(len(steps))*100 + 0.5)
}
