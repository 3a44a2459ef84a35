package orchestrators

import (
	"context"
	"errors"
	"testing"

	"courtside/internal/domain/ledger"
	participationdomain "courtside/internal/domain/participation"
)

// confirmPair funds two users and races them onto the seeded activity.
func confirmPair(t *testing.T, h *engineHarness, activityID string) {
	t.Helper()
	ctx := context.Background()
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)
	h.ledger.fund("u2", ledger.CurrencyMoney, 5000)
	for _, u := range []string{"u1", "u2"} {
		if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: activityID, UserID: u, OptionSize: 2}, h.submitDeps()); err != nil {
			t.Fatalf("submit %s: %v", u, err)
		}
	}
}

func TestLeavePendingUnblocks(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)
	ctx := context.Background()

	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := ExecuteLeaveActivity(ctx, LeaveActivityInput{ActivityID: act.ID, UserID: "u1"}, h.leaveDeps())
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if res.RefundKind != RefundKindUnblock || res.Amount != 1000 {
		t.Fatalf("expected unblock of 1000, got %+v", res)
	}
	if b := h.ledger.balance("u1", ledger.CurrencyMoney); b.Total != 5000 || b.Blocked != 0 {
		t.Fatalf("expected balance restored, got %+v", b)
	}

	if _, err := h.participations.GetActiveByActivityAndUser(ctx, act.ID, "u1"); err == nil {
		t.Fatal("expected no active participation after leave")
	}
}

func TestLeaveConfirmedGrantsCompensationAndRecyclesSeat(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	confirmPair(t, h, act.ID)
	ctx := context.Background()

	res, err := ExecuteLeaveActivity(ctx, LeaveActivityInput{ActivityID: act.ID, UserID: "u1"}, h.leaveDeps())
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	// Share 1000 minor units converts to 10 whole points, floored.
	if res.RefundKind != RefundKindCompensation || res.Amount != 10 {
		t.Fatalf("expected 10 compensation points, got %+v", res)
	}
	if b := h.ledger.balance("u1", ledger.CurrencyPoints); b.Total != 10 {
		t.Fatalf("expected 10 points credited, got %+v", b)
	}
	// The settled money is not refunded.
	if b := h.ledger.balance("u1", ledger.CurrencyMoney); b.Total != 4000 {
		t.Fatalf("expected money debit retained, got %+v", b)
	}

	updated, _ := h.activities.GetByID(ctx, act.ID)
	if !updated.HasRecycledVacancy {
		t.Fatal("expected recycled vacancy flag set")
	}
	if updated.CourtID != "court-1" {
		t.Fatal("court must be retained while a vacancy is sellable")
	}

	parts, _ := h.participations.ListByActivity(ctx, act.ID)
	var left participationdomain.Participation
	for _, p := range parts {
		if p.UserID == "u1" {
			left = p
		}
	}
	if left.Status != participationdomain.StatusCancelled || !left.IsRecycled || !left.WasConfirmed {
		t.Fatalf("expected cancelled recycled row, got %+v", left)
	}
}

func TestLeaveWithoutParticipation(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")

	_, err := ExecuteLeaveActivity(context.Background(), LeaveActivityInput{ActivityID: act.ID, UserID: "ghost"}, h.leaveDeps())
	if !errors.Is(err, ErrNoActiveParticipation) {
		t.Fatalf("expected ErrNoActiveParticipation, got %v", err)
	}
}

func TestLeaveKeepsResourceWhileVacancySellable(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	confirmPair(t, h, act.ID)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		if _, err := ExecuteLeaveActivity(ctx, LeaveActivityInput{ActivityID: act.ID, UserID: u}, h.leaveDeps()); err != nil {
			t.Fatalf("leave %s: %v", u, err)
		}
	}

	// Zero confirmed players remain, but two recycled vacancies are still
	// sellable, so the resource is kept.
	updated, _ := h.activities.GetByID(ctx, act.ID)
	if updated.CourtID == "" {
		t.Fatal("resource must be retained while vacancies are open")
	}
	if h.calendar.releases != 0 {
		t.Fatalf("expected no release, got %d", h.calendar.releases)
	}
}

func TestLeaveSameDayRejoinViaPoints(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	confirmPair(t, h, act.ID)
	ctx := context.Background()

	if _, err := ExecuteLeaveActivity(ctx, LeaveActivityInput{ActivityID: act.ID, UserID: "u1"}, h.leaveDeps()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	h.ledger.fund("u1", ledger.CurrencyPoints, 100)

	// The ceded seat is on the same calendar day; buying back in is the
	// explicit carve-out from the daily limit.
	res, err := ExecuteBookWithPoints(ctx, BookWithPointsInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.pointsDeps())
	if err != nil {
		t.Fatalf("book with points: %v", err)
	}
	if !res.Confirmed {
		t.Fatal("rebooking on an assigned activity must confirm immediately")
	}
}
