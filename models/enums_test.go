package models

import (
	"errors"
	"testing"
)

func TestFuneralStatusTransitions(t *testing.T) {
	all := []FuneralStatus{
		FuneralStatusDraft, FuneralStatusActive, FuneralStatusCompleted,
		FuneralStatusClosed, FuneralStatusArchived,
	}
	allowed := map[FuneralStatus][]FuneralStatus{
		FuneralStatusDraft:     {FuneralStatusActive, FuneralStatusArchived},
		FuneralStatusActive:    {FuneralStatusCompleted, FuneralStatusArchived},
		FuneralStatusCompleted: {FuneralStatusClosed},
		FuneralStatusClosed:    {FuneralStatusArchived},
		FuneralStatusArchived:  {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestFuneralStatusValidateTransitionError(t *testing.T) {
	err := FuneralStatusArchived.ValidateTransition(FuneralStatusActive)
	if err == nil {
		t.Fatal("expected error for archived -> active")
	}
	var ste *StateTransitionError
	if !errors.As(err, &ste) {
		t.Fatalf("expected StateTransitionError, got %T", err)
	}
	if ste.From != "archived" || ste.To != "active" {
		t.Errorf("unexpected edge in error: %s -> %s", ste.From, ste.To)
	}
	if ErrorCode(err) != CodeStateTransition {
		t.Errorf("unexpected code %s", ErrorCode(err))
	}
}

func TestFuneralStatusEditableAndFinalized(t *testing.T) {
	cases := []struct {
		status    FuneralStatus
		editable  bool
		finalized bool
	}{
		{FuneralStatusDraft, true, false},
		{FuneralStatusActive, true, false},
		{FuneralStatusCompleted, false, true},
		{FuneralStatusClosed, false, true},
		{FuneralStatusArchived, false, true},
	}
	for _, c := range cases {
		if c.status.IsEditable() != c.editable {
			t.Errorf("%s: IsEditable = %v, want %v", c.status, c.status.IsEditable(), c.editable)
		}
		if c.status.IsFinalized() != c.finalized {
			t.Errorf("%s: IsFinalized = %v, want %v", c.status, c.status.IsFinalized(), c.finalized)
		}
	}
}

func TestTimelineStepStatusTransitions(t *testing.T) {
	all := []TimelineStepStatus{
		TimelineStepStatusPending, TimelineStepStatusInProgress,
		TimelineStepStatusCompleted, TimelineStepStatusSkipped,
	}
	allowed := map[TimelineStepStatus][]TimelineStepStatus{
		TimelineStepStatusPending:    {TimelineStepStatusInProgress, TimelineStepStatusCompleted, TimelineStepStatusSkipped},
		TimelineStepStatusInProgress: {TimelineStepStatusCompleted},
		TimelineStepStatusCompleted:  {},
		TimelineStepStatusSkipped:    {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTimelineStepStatusTerminal(t *testing.T) {
	if TimelineStepStatusPending.IsTerminal() || TimelineStepStatusInProgress.IsTerminal() {
		t.Error("pending and in_progress must not be terminal")
	}
	if !TimelineStepStatusCompleted.IsTerminal() || !TimelineStepStatusSkipped.IsTerminal() {
		t.Error("completed and skipped must be terminal")
	}
}

func TestQuoteStatusTransitions(t *testing.T) {
	all := []QuoteStatus{QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected}
	allowed := map[QuoteStatus][]QuoteStatus{
		QuoteStatusDraft:    {QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected},
		QuoteStatusSent:     {QuoteStatusAccepted, QuoteStatusRejected},
		QuoteStatusAccepted: {},
		QuoteStatusRejected: {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCeremonyTypeRequiresGrave(t *testing.T) {
	if !CeremonyTypeBurial.RequiresGrave() {
		t.Error("burial requires a grave")
	}
	if CeremonyTypeCremation.RequiresGrave() || CeremonyTypeEntombment.RequiresGrave() {
		t.Error("only burial requires a grave")
	}
}

func TestParseFuneralStatus(t *testing.T) {
	if _, err := ParseFuneralStatus("active"); err != nil {
		t.Errorf("active should parse: %v", err)
	}
	if _, err := ParseFuneralStatus("cancelled"); err == nil {
		t.Error("cancelled should not parse")
	}
}

func TestParseCeremonyType(t *testing.T) {
	if _, err := ParseCeremonyType("cremation"); err != nil {
		t.Errorf("cremation should parse: %v", err)
	}
	if _, err := ParseCeremonyType("vigil"); err == nil {
		t.Error("vigil should not parse")
	}
}
