package models

import (
	"errors"
	"slices"
)

type FuneralStatus string

const (
	FuneralStatusDraft     FuneralStatus = "draft"
	FuneralStatusActive    FuneralStatus = "active"
	FuneralStatusCompleted FuneralStatus = "completed"
	FuneralStatusClosed    FuneralStatus = "closed"
	FuneralStatusArchived  FuneralStatus = "archived"
)

// CanTransitionTo reports whether the edge is in the case state machine.
// draft -> active | archived
// active -> completed | archived
// completed -> closed
// closed -> archived
// archived is terminal.
func (s FuneralStatus) CanTransitionTo(target FuneralStatus) bool {
	switch s {
	case FuneralStatusDraft:
		return slices.Contains([]FuneralStatus{FuneralStatusActive, FuneralStatusArchived}, target)
	case FuneralStatusActive:
		return slices.Contains([]FuneralStatus{FuneralStatusCompleted, FuneralStatusArchived}, target)
	case FuneralStatusCompleted:
		return target == FuneralStatusClosed
	case FuneralStatusClosed:
		return target == FuneralStatusArchived
	case FuneralStatusArchived:
		return false
	}
	return false
}

func (s FuneralStatus) ValidateTransition(target FuneralStatus) error {
	if !s.CanTransitionTo(target) {
		return &StateTransitionError{Entity: "funeral", From: string(s), To: string(target)}
	}
	return nil
}

func (s FuneralStatus) IsEditable() bool {
	return s == FuneralStatusDraft || s == FuneralStatusActive
}

func (s FuneralStatus) IsFinalized() bool {
	return s == FuneralStatusCompleted || s == FuneralStatusClosed || s == FuneralStatusArchived
}

func ParseFuneralStatus(str string) (FuneralStatus, error) {
	switch FuneralStatus(str) {
	case FuneralStatusDraft, FuneralStatusActive, FuneralStatusCompleted,
		FuneralStatusClosed, FuneralStatusArchived:
		return FuneralStatus(str), nil
	}
	return "", errors.New("invalid funeral status")
}

type TimelineStepStatus string

const (
	TimelineStepStatusPending    TimelineStepStatus = "pending"
	TimelineStepStatusInProgress TimelineStepStatus = "in_progress"
	TimelineStepStatusCompleted  TimelineStepStatus = "completed"
	TimelineStepStatusSkipped    TimelineStepStatus = "skipped"
)

// CanTransitionTo reports whether the edge is in the step state machine.
// pending -> in_progress | completed | skipped
// in_progress -> completed
// completed and skipped are terminal.
func (s TimelineStepStatus) CanTransitionTo(target TimelineStepStatus) bool {
	switch s {
	case TimelineStepStatusPending:
		return slices.Contains([]TimelineStepStatus{
			TimelineStepStatusInProgress, TimelineStepStatusCompleted, TimelineStepStatusSkipped,
		}, target)
	case TimelineStepStatusInProgress:
		return target == TimelineStepStatusCompleted
	case TimelineStepStatusCompleted, TimelineStepStatusSkipped:
		return false
	}
	return false
}

func (s TimelineStepStatus) ValidateTransition(target TimelineStepStatus) error {
	if !s.CanTransitionTo(target) {
		return &StateTransitionError{Entity: "timeline step", From: string(s), To: string(target)}
	}
	return nil
}

func (s TimelineStepStatus) IsEditable() bool {
	return s == TimelineStepStatusPending || s == TimelineStepStatusInProgress
}

func (s TimelineStepStatus) IsTerminal() bool {
	return s == TimelineStepStatusCompleted || s == TimelineStepStatusSkipped
}

type CeremonyType string

const (
	CeremonyTypeBurial     CeremonyType = "burial"
	CeremonyTypeCremation  CeremonyType = "cremation"
	CeremonyTypeEntombment CeremonyType = "entombment"
)

func (t CeremonyType) RequiresGrave() bool {
	return t == CeremonyTypeBurial
}

func (t CeremonyType) Label() string {
	switch t {
	case CeremonyTypeBurial:
		return "Sepoltura"
	case CeremonyTypeCremation:
		return "Cremazione"
	case CeremonyTypeEntombment:
		return "Tumulazione"
	}
	return "Altro"
}

func ParseCeremonyType(str string) (CeremonyType, error) {
	switch CeremonyType(str) {
	case CeremonyTypeBurial, CeremonyTypeCremation, CeremonyTypeEntombment:
		return CeremonyType(str), nil
	}
	return "", errors.New("invalid ceremony type")
}

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

// draft -> sent | accepted | rejected
// sent -> accepted | rejected
// accepted and rejected are terminal.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return slices.Contains([]QuoteStatus{QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected}, target)
	case QuoteStatusSent:
		return target == QuoteStatusAccepted || target == QuoteStatusRejected
	case QuoteStatusAccepted, QuoteStatusRejected:
		return false
	}
	return false
}

func (s QuoteStatus) ValidateTransition(target QuoteStatus) error {
	if !s.CanTransitionTo(target) {
		return &StateTransitionError{Entity: "quote", From: string(s), To: string(target)}
	}
	return nil
}

type GraveStatus string

const (
	GraveStatusAvailable   GraveStatus = "available"
	GraveStatusReserved    GraveStatus = "reserved"
	GraveStatusOccupied    GraveStatus = "occupied"
	GraveStatusMaintenance GraveStatus = "maintenance"
)

type ConcessionStatus string

const (
	ConcessionStatusActive     ConcessionStatus = "active"
	ConcessionStatusExpiring   ConcessionStatus = "expiring"
	ConcessionStatusExpired    ConcessionStatus = "expired"
	ConcessionStatusTerminated ConcessionStatus = "terminated"
)

type MarginAlertLevel string

const (
	MarginAlertLevelNone     MarginAlertLevel = "none"
	MarginAlertLevelGood     MarginAlertLevel = "good"
	MarginAlertLevelInfo     MarginAlertLevel = "info"
	MarginAlertLevelWarning  MarginAlertLevel = "warning"
	MarginAlertLevelCritical MarginAlertLevel = "critical"
)

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusUploaded DocumentStatus = "uploaded"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)
