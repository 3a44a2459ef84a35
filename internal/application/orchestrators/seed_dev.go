package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courtside/internal/application/ledgerops"
	activitydomain "courtside/internal/domain/activity"
	courtdomain "courtside/internal/domain/court"
	"courtside/internal/domain/ledger"

	"github.com/google/uuid"
)

// SeedClubID is the fixed club used by development seeding.
const SeedClubID = "club-dev"

// SeedDevDeps holds dependencies for development seeding.
type SeedDevDeps struct {
	Activities ActivityStore
	Courts     CourtStore
	Ledger     LedgerService

	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSeedDev populates a development database with a club of courts,
// funded test accounts and a bookable activity for tomorrow evening. Safe to
// run on every boot: an already-seeded club is left alone.
// PRE: Deps are wired against a migrated database
// POST: The dev club exists with courts, accounts and one open activity
func ExecuteSeedDev(ctx context.Context, deps SeedDevDeps) error {
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	existing, err := deps.Courts.ListByClub(ctx, SeedClubID)
	if err != nil {
		return fmt.Errorf("check seed club: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed_dev_skipped", "club_id", SeedClubID, "courts", len(existing))
		return nil
	}

	for n := 1; n <= 4; n++ {
		crt := courtdomain.Court{
			ID:     fmt.Sprintf("court-dev-%d", n),
			ClubID: SeedClubID,
			Number: n,
			Name:   fmt.Sprintf("Court %d", n),
		}
		if err := deps.Courts.Save(ctx, crt); err != nil {
			return fmt.Errorf("seed court %d: %w", n, err)
		}
	}

	for _, userID := range []string{"user-dev-1", "user-dev-2", "user-dev-3", "user-dev-4"} {
		if err := deps.Ledger.Credit(ctx, userID, ledger.CurrencyMoney, 10000, ledgerops.Ref{Concept: ConceptTopUp}); err != nil {
			return fmt.Errorf("seed account %s: %w", userID, err)
		}
	}

	start := deps.Now().Add(24 * time.Hour).Truncate(time.Hour)
	act := activitydomain.Activity{
		ID:           deps.GenerateID(),
		ClubID:       SeedClubID,
		InstructorID: "instructor-dev-1",
		Start:        start,
		End:          start.Add(90 * time.Minute),
		Options: []activitydomain.Option{
			{Size: 2, Price: 2400},
			{Size: 4, Price: 3600},
		},
		MaxPlayers: 4,
	}
	if err := act.Validate(); err != nil {
		return fmt.Errorf("seed activity: %w", err)
	}
	if err := deps.Activities.Save(ctx, act); err != nil {
		return fmt.Errorf("seed activity: %w", err)
	}

	slog.Info("seed_dev_complete", "club_id", SeedClubID, "activity_id", act.ID)
	return nil
}
