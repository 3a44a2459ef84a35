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

// BookWithPointsInput carries a points purchase of a recycled vacancy.
type BookWithPointsInput struct {
	ActivityID string
	UserID     string
	OptionSize int
}

// BookWithPointsDeps holds dependencies for BookWithPoints.
type BookWithPointsDeps struct {
	Activities     ActivityStore
	Participations ParticipationStore
	Ledger         LedgerService
	Calendar       CalendarService
	Publisher      EventPublisher
	Locks          *keylock.Manager

	GenerateID func() string
	Now        func() time.Time
}

// BookWithPointsResult reports the points spent and the resulting status.
type BookWithPointsResult struct {
	ParticipationID string
	PointsSpent     int64
	Confirmed       bool
}

// ExecuteBookWithPoints fills a recycled vacancy with points.
//
// The points price derives from the consumed vacancy's recorded share, so a
// buyer always pays what the leaver had committed for that seat. The oldest
// open vacancy of the requested option size is consumed; a vacancy of a
// different size cannot serve the sale. While the activity still holds its court
// the buyer is settled and confirmed immediately; if the court was released
// in the meantime the buyer joins as a pending bid and the race re-runs.
//
// The daily-limit check excludes this activity, so a confirmed player who
// ceded their seat earlier the same day may buy back in.
//
// PRE: Input ids are non-empty, OptionSize is positive
// POST: On nil error one recycled vacancy is consumed and the points blocked
// or settled
func ExecuteBookWithPoints(ctx context.Context, input BookWithPointsInput, deps BookWithPointsDeps) (BookWithPointsResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	release, err := deps.Locks.Acquire(ctx, keylock.ActivityKey(input.ActivityID))
	if err != nil {
		return BookWithPointsResult{}, err
	}
	defer release()

	act, err := deps.Activities.GetByID(ctx, input.ActivityID)
	if errors.Is(err, activitystore.ErrNotFound) {
		return BookWithPointsResult{}, ErrActivityNotFound
	}
	if err != nil {
		return BookWithPointsResult{}, err
	}

	now := deps.Now()
	if !now.Before(act.Start) {
		return BookWithPointsResult{}, ErrActivityClosed
	}
	if !act.HasRecycledVacancy {
		return BookWithPointsResult{}, ErrNoRecycledVacancy
	}
	if !act.HasOption(input.OptionSize) {
		return BookWithPointsResult{}, ErrUnknownOptionSize
	}

	if _, err := deps.Participations.GetActiveByActivityAndUser(ctx, input.ActivityID, input.UserID); err == nil {
		return BookWithPointsResult{}, ErrDuplicateParticipation
	} else if !errors.Is(err, participationstore.ErrNotFound) {
		return BookWithPointsResult{}, err
	}

	parts, err := deps.Participations.ListByActivity(ctx, input.ActivityID)
	if err != nil {
		return BookWithPointsResult{}, err
	}
	active := 0
	anyRecycled := false
	var vacancy *participationdomain.Participation
	for i, p := range parts {
		if p.IsActive() {
			active++
		}
		// parts arrive oldest first; keep the first open vacancy of the
		// requested size. A confirmed group holds seats of one size only,
		// so a mismatched size means there is nothing for sale here.
		if p.IsRecycled {
			anyRecycled = true
			if p.OptionSize == input.OptionSize && vacancy == nil {
				vacancy = &parts[i]
			}
		}
	}
	if active >= act.MaxPlayers {
		return BookWithPointsResult{}, ErrActivityFull
	}
	if vacancy == nil {
		if !anyRecycled {
			// Flag out of sync with rows; heal it and refuse the sale.
			act.HasRecycledVacancy = false
			if err := deps.Activities.Save(ctx, act); err != nil {
				return BookWithPointsResult{}, err
			}
		}
		return BookWithPointsResult{}, ErrNoRecycledVacancy
	}

	confirmedToday, err := deps.Participations.CountConfirmedByUserOnDate(ctx, input.UserID, act.Date(), act.ID)
	if err != nil {
		return BookWithPointsResult{}, err
	}
	if confirmedToday > 0 {
		return BookWithPointsResult{}, ErrDailyLimitExceeded
	}

	// Price from the seat being resold, not from the buyer's request. A
	// money-paid vacancy converts its blocked share to points; a points-paid
	// vacancy already holds the points amount.
	pointsPrice := vacancy.BlockedAmount
	if vacancy.Currency == ledger.CurrencyMoney {
		pointsPrice = ledger.PointsForMinorUnits(vacancy.BlockedAmount)
	}

	participationID := deps.GenerateID()
	ref := ledgerops.Ref{Concept: ConceptPointsBooking, ActivityID: act.ID, ParticipationID: participationID}
	if err := deps.Ledger.Block(ctx, input.UserID, ledger.CurrencyPoints, pointsPrice, ref); err != nil {
		if errors.Is(err, ledgerops.ErrInsufficientFunds) {
			return BookWithPointsResult{}, ErrInsufficientPoints
		}
		return BookWithPointsResult{}, err
	}

	p := participationdomain.Participation{
		ID:            participationID,
		ActivityID:    act.ID,
		UserID:        input.UserID,
		OptionSize:    vacancy.OptionSize,
		Status:        participationdomain.StatusPending,
		BlockedAmount: pointsPrice,
		Currency:      ledger.CurrencyPoints,
		CreatedAt:     now,
	}
	if err := deps.Participations.Save(ctx, p); err != nil {
		if unblockErr := deps.Ledger.Unblock(ctx, input.UserID, ledger.CurrencyPoints, pointsPrice, ref); unblockErr != nil {
			slog.Error("points_booking_rollback_failed", "participation_id", participationID, "error", unblockErr)
		}
		return BookWithPointsResult{}, err
	}

	// Consume the vacancy: the seat is sold whether or not the court is
	// still assigned.
	vacancy.IsRecycled = false
	if err := deps.Participations.Save(ctx, *vacancy); err != nil {
		return BookWithPointsResult{}, err
	}
	remaining := 0
	for _, other := range parts {
		if other.IsRecycled && other.ID != vacancy.ID {
			remaining++
		}
	}
	act.HasRecycledVacancy = remaining > 0

	result := BookWithPointsResult{ParticipationID: participationID, PointsSpent: pointsPrice}
	if act.IsConfirmed() {
		if err := deps.Ledger.Settle(ctx, input.UserID, ledger.CurrencyPoints, pointsPrice, ref); err != nil {
			return result, err
		}
		p.Status = participationdomain.StatusConfirmed
		p.WasConfirmed = true
		if err := deps.Participations.Save(ctx, p); err != nil {
			return result, err
		}
		result.Confirmed = true
	}
	if err := deps.Activities.Save(ctx, act); err != nil {
		return result, err
	}

	slog.Info("points_booking",
		"activity_id", act.ID,
		"participation_id", participationID,
		"user_id", input.UserID,
		"points", pointsPrice,
		"confirmed", result.Confirmed)
	publish(ctx, deps.Publisher, events.KeyParticipantJoined, events.Event{
		ActivityID:      act.ID,
		ParticipationID: participationID,
		UserID:          input.UserID,
		CourtID:         act.CourtID,
		OccurredAt:      now,
	})

	if !act.IsConfirmed() {
		if _, err := resolveRace(ctx, raceDeps{
			Activities:     deps.Activities,
			Participations: deps.Participations,
			Ledger:         deps.Ledger,
			Calendar:       deps.Calendar,
			Publisher:      deps.Publisher,
			Now:            deps.Now,
		}, act); err != nil {
			return result, err
		}
		updated, err := deps.Participations.GetByID(ctx, participationID)
		if err != nil {
			return result, err
		}
		result.Confirmed = updated.Status == participationdomain.StatusConfirmed
	}
	return result, nil
}
