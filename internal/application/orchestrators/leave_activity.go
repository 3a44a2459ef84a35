package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courtside/internal/adapters/events"
	activitystore "courtside/internal/adapters/storage/activity"
	participationstore "courtside/internal/adapters/storage/participation"
	"courtside/internal/application/keylock"
	"courtside/internal/application/ledgerops"
	activitydomain "courtside/internal/domain/activity"
	"courtside/internal/domain/ledger"
	participationdomain "courtside/internal/domain/participation"
)

// Refund kinds reported by ExecuteLeaveActivity.
const (
	RefundKindUnblock      = "unblock"      // pending leaver, blocked money returned
	RefundKindCompensation = "compensation" // confirmed leaver, settled money converted to points
)

// LeaveActivityInput identifies the participation to cancel.
type LeaveActivityInput struct {
	ActivityID string
	UserID     string
}

// LeaveActivityDeps holds dependencies for LeaveActivity.
type LeaveActivityDeps struct {
	Activities     ActivityStore
	Participations ParticipationStore
	Ledger         LedgerService
	Calendar       CalendarService
	Publisher      EventPublisher
	Locks          *keylock.Manager

	Now func() time.Time
}

// LeaveActivityResult reports how the leaver was made whole.
type LeaveActivityResult struct {
	RefundKind string
	// Amount is minor units for RefundKindUnblock, points for
	// RefundKindCompensation.
	Amount int64
}

// ExecuteLeaveActivity cancels the user's active participation.
//
// A pending leaver gets their blocked money back. A confirmed leaver keeps
// the debit, receives floored points compensation, and their seat becomes a
// recycled vacancy sellable for points only. When the activity ends up with
// no confirmed players and no open recycled vacancy its court and instructor
// windows are released and it reverts to a proposal.
//
// PRE: Input ids are non-empty
// POST: The participation is CANCELLED and the refund applied
func ExecuteLeaveActivity(ctx context.Context, input LeaveActivityInput, deps LeaveActivityDeps) (LeaveActivityResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	release, err := deps.Locks.Acquire(ctx, keylock.ActivityKey(input.ActivityID))
	if err != nil {
		return LeaveActivityResult{}, err
	}
	defer release()

	act, err := deps.Activities.GetByID(ctx, input.ActivityID)
	if errors.Is(err, activitystore.ErrNotFound) {
		return LeaveActivityResult{}, ErrActivityNotFound
	}
	if err != nil {
		return LeaveActivityResult{}, err
	}

	p, err := deps.Participations.GetActiveByActivityAndUser(ctx, input.ActivityID, input.UserID)
	if errors.Is(err, participationstore.ErrNotFound) {
		return LeaveActivityResult{}, ErrNoActiveParticipation
	}
	if err != nil {
		return LeaveActivityResult{}, err
	}

	now := deps.Now()
	ref := ledgerops.Ref{Concept: conceptFor(p.Currency), ActivityID: act.ID, ParticipationID: p.ID}

	var result LeaveActivityResult
	switch p.Status {
	case participationdomain.StatusPending:
		if err := deps.Ledger.Unblock(ctx, p.UserID, p.Currency, p.BlockedAmount, ref); err != nil {
			return LeaveActivityResult{}, err
		}
		p.Status = participationdomain.StatusCancelled
		p.CancelledAt = now
		if err := deps.Participations.Save(ctx, p); err != nil {
			return LeaveActivityResult{}, err
		}
		result = LeaveActivityResult{RefundKind: RefundKindUnblock, Amount: p.BlockedAmount}

	case participationdomain.StatusConfirmed:
		// Cancel first so a compensation failure never leaves the seat
		// occupied and paid twice.
		p.Status = participationdomain.StatusCancelled
		p.CancelledAt = now
		p.WasConfirmed = true
		p.IsRecycled = true
		if err := deps.Participations.Save(ctx, p); err != nil {
			return LeaveActivityResult{}, err
		}
		var points int64
		if p.Currency == ledger.CurrencyPoints {
			// A points-paid seat compensates in kind: the settled points
			// come back, no money conversion involved.
			compRef := ledgerops.Ref{Concept: ledger.ConceptCompensation, ActivityID: act.ID, ParticipationID: p.ID}
			if err := deps.Ledger.Credit(ctx, p.UserID, ledger.CurrencyPoints, p.BlockedAmount, compRef); err != nil {
				return LeaveActivityResult{}, err
			}
			points = p.BlockedAmount
		} else {
			points, err = deps.Ledger.GrantCompensation(ctx, p.UserID, p.BlockedAmount, ref)
			if err != nil {
				return LeaveActivityResult{}, err
			}
		}
		act.HasRecycledVacancy = true
		result = LeaveActivityResult{RefundKind: RefundKindCompensation, Amount: points}

	default:
		return LeaveActivityResult{}, ErrNoActiveParticipation
	}

	if err := evaluateRelease(ctx, deps, &act); err != nil {
		return LeaveActivityResult{}, err
	}
	if err := deps.Activities.Save(ctx, act); err != nil {
		return LeaveActivityResult{}, err
	}

	slog.Info("participation_left",
		"activity_id", act.ID,
		"participation_id", p.ID,
		"user_id", input.UserID,
		"refund_kind", result.RefundKind,
		"amount", result.Amount)
	publish(ctx, deps.Publisher, events.KeyParticipantLeft, events.Event{
		ActivityID:      act.ID,
		ParticipationID: p.ID,
		UserID:          input.UserID,
		OccurredAt:      now,
	})
	return result, nil
}

// evaluateRelease frees the activity's resources once nobody confirmed
// remains and no recycled vacancy is still for sale. The activity reverts to
// a proposal: court cleared, occupancy rows gone, money race reopened.
// Caller must hold the activity lock and persist the mutated activity.
func evaluateRelease(ctx context.Context, deps LeaveActivityDeps, act *activitydomain.Activity) error {
	if !act.IsConfirmed() {
		return nil
	}

	parts, err := deps.Participations.ListByActivity(ctx, act.ID)
	if err != nil {
		return err
	}
	confirmed, openVacancies := 0, 0
	for _, p := range parts {
		if p.Status == participationdomain.StatusConfirmed {
			confirmed++
		}
		if p.IsRecycled {
			openVacancies++
		}
	}
	if confirmed > 0 || openVacancies > 0 {
		return nil
	}

	if err := deps.Calendar.Release(ctx, act.ID); err != nil {
		return err
	}
	act.CourtID = ""
	act.HasRecycledVacancy = false

	slog.Info("activity_released", "activity_id", act.ID)
	publish(ctx, deps.Publisher, events.KeyActivityReleased, events.Event{
		ActivityID: act.ID,
		OccurredAt: deps.Now(),
	})
	return nil
}
