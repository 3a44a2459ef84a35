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
	"courtside/internal/domain/ledger"
	participationdomain "courtside/internal/domain/participation"

	"github.com/google/uuid"
)

// SubmitParticipationInput carries a user's money bid for one option size.
type SubmitParticipationInput struct {
	ActivityID string
	UserID     string
	OptionSize int
}

// SubmitParticipationDeps holds dependencies for SubmitParticipation.
type SubmitParticipationDeps struct {
	Activities     ActivityStore
	Participations ParticipationStore
	Ledger         LedgerService
	Calendar       CalendarService
	Publisher      EventPublisher
	Locks          *keylock.Manager

	GenerateID func() string
	Now        func() time.Time
}

// SubmitParticipationResult reports what the submission achieved.
type SubmitParticipationResult struct {
	ParticipationID string
	Confirmed       bool   // this user ended up settled on the winning size
	CourtID         string // set when the activity got a court in this step
}

// ExecuteSubmitParticipation places a money bid on one option size and runs
// race evaluation.
//
// The whole step runs under the activity lock: duplicate check, daily-limit
// check, ledger block, row insert and race evaluation cannot interleave with
// another submission on the same activity. The user's share is the option
// price divided by the group size, blocked up front and only settled if the
// size wins.
//
// PRE: Input ids are non-empty, OptionSize is positive
// POST: On nil error a participation row exists; Confirmed reports whether
// this submission completed a winning group.
func ExecuteSubmitParticipation(ctx context.Context, input SubmitParticipationInput, deps SubmitParticipationDeps) (SubmitParticipationResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	release, err := deps.Locks.Acquire(ctx, keylock.ActivityKey(input.ActivityID))
	if err != nil {
		return SubmitParticipationResult{}, err
	}
	defer release()

	act, err := deps.Activities.GetByID(ctx, input.ActivityID)
	if errors.Is(err, activitystore.ErrNotFound) {
		return SubmitParticipationResult{}, ErrActivityNotFound
	}
	if err != nil {
		return SubmitParticipationResult{}, err
	}

	now := deps.Now()
	// The money race closes at start time and the moment a court is
	// assigned; later seats sell via recycled vacancies only.
	if !now.Before(act.Start) || act.IsConfirmed() {
		return SubmitParticipationResult{}, ErrActivityClosed
	}
	if !act.HasOption(input.OptionSize) {
		return SubmitParticipationResult{}, ErrUnknownOptionSize
	}

	if _, err := deps.Participations.GetActiveByActivityAndUser(ctx, input.ActivityID, input.UserID); err == nil {
		return SubmitParticipationResult{}, ErrDuplicateParticipation
	} else if !errors.Is(err, participationstore.ErrNotFound) {
		return SubmitParticipationResult{}, err
	}

	confirmedToday, err := deps.Participations.CountConfirmedByUserOnDate(ctx, input.UserID, act.Date(), "")
	if err != nil {
		return SubmitParticipationResult{}, err
	}
	if confirmedToday > 0 {
		return SubmitParticipationResult{}, ErrDailyLimitExceeded
	}

	price, err := act.OptionPrice(input.OptionSize)
	if err != nil {
		return SubmitParticipationResult{}, ErrUnknownOptionSize
	}
	share := price / int64(input.OptionSize)

	participationID := deps.GenerateID()
	ref := ledgerops.Ref{Concept: ConceptBooking, ActivityID: act.ID, ParticipationID: participationID}
	if err := deps.Ledger.Block(ctx, input.UserID, ledger.CurrencyMoney, share, ref); err != nil {
		return SubmitParticipationResult{}, err
	}

	p := participationdomain.Participation{
		ID:            participationID,
		ActivityID:    act.ID,
		UserID:        input.UserID,
		OptionSize:    input.OptionSize,
		Status:        participationdomain.StatusPending,
		BlockedAmount: share,
		Currency:      ledger.CurrencyMoney,
		CreatedAt:     now,
	}
	if err := deps.Participations.Save(ctx, p); err != nil {
		// Roll the block back so a failed insert leaves the account intact.
		if unblockErr := deps.Ledger.Unblock(ctx, input.UserID, ledger.CurrencyMoney, share, ref); unblockErr != nil {
			slog.Error("submit_rollback_failed", "participation_id", participationID, "error", unblockErr)
		}
		return SubmitParticipationResult{}, err
	}

	slog.Info("participation_submitted",
		"activity_id", act.ID,
		"participation_id", participationID,
		"user_id", input.UserID,
		"option_size", input.OptionSize,
		"blocked_amount", share)
	publish(ctx, deps.Publisher, events.KeyParticipantJoined, events.Event{
		ActivityID:      act.ID,
		ParticipationID: participationID,
		UserID:          input.UserID,
		OccurredAt:      now,
	})

	confirmed, err := resolveRace(ctx, raceDeps{
		Activities:     deps.Activities,
		Participations: deps.Participations,
		Ledger:         deps.Ledger,
		Calendar:       deps.Calendar,
		Publisher:      deps.Publisher,
		Now:            deps.Now,
	}, act)
	if err != nil {
		return SubmitParticipationResult{ParticipationID: participationID}, err
	}

	result := SubmitParticipationResult{ParticipationID: participationID}
	if confirmed {
		updated, err := deps.Participations.GetByID(ctx, participationID)
		if err != nil {
			return result, err
		}
		refreshed, err := deps.Activities.GetByID(ctx, act.ID)
		if err != nil {
			return result, err
		}
		result.Confirmed = updated.Status == participationdomain.StatusConfirmed
		result.CourtID = refreshed.CourtID
	}
	return result, nil
}
