package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courtside/internal/adapters/events"
	"courtside/internal/application/calendar"
	"courtside/internal/application/ledgerops"
	activitydomain "courtside/internal/domain/activity"
	"courtside/internal/domain/ledger"
	participationdomain "courtside/internal/domain/participation"
)

// raceDeps is the shared dependency set for race evaluation. Both money
// submissions and points bookings on an unassigned activity funnel through
// the same evaluation.
type raceDeps struct {
	Activities     ActivityStore
	Participations ParticipationStore
	Ledger         LedgerService
	Calendar       CalendarService
	Publisher      EventPublisher
	Now            func() time.Time
}

// resolveRace evaluates the group-size race for an unassigned activity.
// Caller must hold the activity lock.
//
// Option sizes are checked in ascending order; the first size whose pending
// count reaches the size wins. The winners are the earliest arrivals of that
// size. Winning assigns court plus instructor atomically, settles every
// winner's blocked funds, and cancels-with-refund every remaining pending.
//
// When no court or the instructor is unavailable the activity stays open with
// all pendings and blocks intact, so a later submission re-evaluates.
//
// POST: Returns true when the activity got a court assigned.
func resolveRace(ctx context.Context, d raceDeps, act activitydomain.Activity) (bool, error) {
	if act.IsConfirmed() {
		return false, nil
	}

	parts, err := d.Participations.ListByActivity(ctx, act.ID)
	if err != nil {
		return false, err
	}

	pendingBySize := make(map[int][]participationdomain.Participation)
	for _, p := range parts {
		if p.Status == participationdomain.StatusPending {
			pendingBySize[p.OptionSize] = append(pendingBySize[p.OptionSize], p)
		}
	}

	for _, size := range act.SortedSizes() {
		group := pendingBySize[size]
		if len(group) < size {
			continue
		}

		courtID, err := d.Calendar.AssignFirstAvailable(ctx, act.ClubID, act.InstructorID, act.ID, act.Window())
		if errors.Is(err, calendar.ErrResourceConflict) {
			slog.Warn("race_no_resource_available",
				"activity_id", act.ID,
				"winning_size", size,
				"start", act.Start)
			return false, nil
		}
		if err != nil {
			return false, err
		}

		act.CourtID = courtID
		if err := d.Activities.Save(ctx, act); err != nil {
			// Give the occupancy rows back, or the phantom booking keeps
			// every later attempt in permanent self-conflict.
			if relErr := d.Calendar.Release(ctx, act.ID); relErr != nil {
				slog.Error("race_rollback_failed",
					"activity_id", act.ID,
					"error", relErr)
			}
			return false, err
		}

		winners := group[:size]
		winnerIDs := make(map[string]bool, size)
		for _, w := range winners {
			winnerIDs[w.ID] = true
			settleWinner(ctx, d, w, act.ID)
		}
		for _, p := range parts {
			if p.Status != participationdomain.StatusPending || winnerIDs[p.ID] {
				continue
			}
			cancelWithRefund(ctx, d, p)
		}

		slog.Info("race_resolved",
			"activity_id", act.ID,
			"winning_size", size,
			"court_id", courtID)
		publish(ctx, d.Publisher, events.KeyActivityConfirmed, events.Event{
			ActivityID: act.ID,
			CourtID:    courtID,
			OccurredAt: d.Now(),
		})
		return true, nil
	}

	return false, nil
}

// settleWinner converts one winner's block into a debit and confirms the row.
// Failures are logged and do not unwind the court assignment; the ledger
// flags the account itself on corruption.
func settleWinner(ctx context.Context, d raceDeps, p participationdomain.Participation, activityID string) {
	ref := ledgerops.Ref{Concept: conceptFor(p.Currency), ActivityID: activityID, ParticipationID: p.ID}
	if err := d.Ledger.Settle(ctx, p.UserID, p.Currency, p.BlockedAmount, ref); err != nil {
		slog.Error("race_settle_failed",
			"activity_id", activityID,
			"participation_id", p.ID,
			"user_id", p.UserID,
			"error", err)
		return
	}
	p.Status = participationdomain.StatusConfirmed
	p.WasConfirmed = true
	if err := d.Participations.Save(ctx, p); err != nil {
		slog.Error("race_confirm_save_failed", "participation_id", p.ID, "error", err)
	}
}

// cancelWithRefund unblocks a losing pending's funds and cancels the row.
func cancelWithRefund(ctx context.Context, d raceDeps, p participationdomain.Participation) {
	ref := ledgerops.Ref{Concept: conceptFor(p.Currency), ActivityID: p.ActivityID, ParticipationID: p.ID}
	if err := d.Ledger.Unblock(ctx, p.UserID, p.Currency, p.BlockedAmount, ref); err != nil {
		slog.Error("race_refund_failed", "participation_id", p.ID, "user_id", p.UserID, "error", err)
		return
	}
	p.Status = participationdomain.StatusCancelled
	p.CancelledAt = d.Now()
	if err := d.Participations.Save(ctx, p); err != nil {
		slog.Error("race_cancel_save_failed", "participation_id", p.ID, "error", err)
	}
}

// conceptFor maps a participation's currency onto its ledger concept.
func conceptFor(c ledger.Currency) string {
	if c == ledger.CurrencyPoints {
		return ConceptPointsBooking
	}
	return ConceptBooking
}

// publish sends a lifecycle event, logging failures instead of propagating
// them into the booking path.
func publish(ctx context.Context, pub EventPublisher, key string, event events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, key, event); err != nil {
		slog.Warn("event_publish_failed", "key", key, "activity_id", event.ActivityID, "error", err)
	}
}
