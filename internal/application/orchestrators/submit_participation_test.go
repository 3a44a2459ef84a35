package orchestrators

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courtside/internal/application/ledgerops"
	"courtside/internal/domain/ledger"
	participationdomain "courtside/internal/domain/participation"
)

func TestSubmitSecondPlayerCompletesPair(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)
	h.ledger.fund("u2", ledger.CurrencyMoney, 5000)
	ctx := context.Background()

	first, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Confirmed {
		t.Fatal("single bid must not confirm a pair")
	}
	if got := h.ledger.balance("u1", ledger.CurrencyMoney); got.Blocked != 1000 {
		t.Fatalf("expected 1000 blocked for u1, got %d", got.Blocked)
	}

	second, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u2", OptionSize: 2}, h.submitDeps())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.Confirmed || second.CourtID != "court-1" {
		t.Fatalf("expected confirmed on court-1, got %+v", second)
	}

	// Both shares settled: total down by the share, nothing left blocked.
	for _, userID := range []string{"u1", "u2"} {
		b := h.ledger.balance(userID, ledger.CurrencyMoney)
		if b.Total != 4000 || b.Blocked != 0 {
			t.Fatalf("user %s: expected total 4000 blocked 0, got %+v", userID, b)
		}
	}

	updated, err := h.activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("reload activity: %v", err)
	}
	if updated.CourtID != "court-1" {
		t.Fatalf("expected activity on court-1, got %q", updated.CourtID)
	}
}

func TestSubmitSmallestSatisfiedSizeWinsAndLosersRefunded(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
		h.ledger.fund(u, ledger.CurrencyMoney, 5000)
	}
	ctx := context.Background()

	// Three bids on size 4 stay short of the group.
	for _, u := range []string{"u1", "u2", "u3"} {
		res, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: u, OptionSize: 4}, h.submitDeps())
		if err != nil {
			t.Fatalf("submit %s: %v", u, err)
		}
		if res.Confirmed {
			t.Fatalf("size 4 must not confirm with 3 bids")
		}
	}

	// Two bids on size 2 complete first and win despite arriving later.
	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u4", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("submit u4: %v", err)
	}
	res, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u5", OptionSize: 2}, h.submitDeps())
	if err != nil {
		t.Fatalf("submit u5: %v", err)
	}
	if !res.Confirmed {
		t.Fatal("completing the pair must confirm")
	}

	// Size 4 losers are cancelled with their blocks returned.
	for _, u := range []string{"u1", "u2", "u3"} {
		b := h.ledger.balance(u, ledger.CurrencyMoney)
		if b.Total != 5000 || b.Blocked != 0 {
			t.Fatalf("loser %s: expected untouched balance, got %+v", u, b)
		}
	}
	parts, _ := h.participations.ListByActivity(ctx, act.ID)
	byUser := map[string]participationdomain.Status{}
	for _, p := range parts {
		byUser[p.UserID] = p.Status
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		if byUser[u] != participationdomain.StatusCancelled {
			t.Fatalf("loser %s: expected CANCELLED, got %s", u, byUser[u])
		}
	}
	for _, u := range []string{"u4", "u5"} {
		if byUser[u] != participationdomain.StatusConfirmed {
			t.Fatalf("winner %s: expected CONFIRMED, got %s", u, byUser[u])
		}
	}
}

func TestSubmitInsufficientFundsHasNoSideEffects(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.ledger.fund("u1", ledger.CurrencyMoney, 500) // share is 1000
	ctx := context.Background()

	_, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps())
	if !errors.Is(err, ledgerops.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if parts, _ := h.participations.ListByActivity(ctx, act.ID); len(parts) != 0 {
		t.Fatalf("expected no participation rows, got %d", len(parts))
	}
	if b := h.ledger.balance("u1", ledger.CurrencyMoney); b.Blocked != 0 {
		t.Fatalf("expected nothing blocked, got %d", b.Blocked)
	}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)
	ctx := context.Background()

	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 4}, h.submitDeps())
	if !errors.Is(err, ErrDuplicateParticipation) {
		t.Fatalf("expected ErrDuplicateParticipation, got %v", err)
	}
}

func TestSubmitDailyLimitAcrossActivities(t *testing.T) {
	h := newEngineHarness()
	actA := h.seedActivity("act-a")
	h.seedActivity("act-b")
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)
	ctx := context.Background()

	// u1 already holds a confirmed seat on activity A today.
	confirmed := participationdomain.Participation{
		ID: "p-existing", ActivityID: actA.ID, UserID: "u1", OptionSize: 2,
		Status: participationdomain.StatusConfirmed, BlockedAmount: 1000,
		Currency: ledger.CurrencyMoney, WasConfirmed: true, CreatedAt: h.now,
	}
	if err := h.participations.Save(ctx, confirmed); err != nil {
		t.Fatalf("seed participation: %v", err)
	}

	_, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: "act-b", UserID: "u1", OptionSize: 2}, h.submitDeps())
	if !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
	}
	if b := h.ledger.balance("u1", ledger.CurrencyMoney); b.Blocked != 0 {
		t.Fatalf("daily-limit rejection must not block funds, got %d", b.Blocked)
	}
	if parts, _ := h.participations.ListByActivity(ctx, "act-b"); len(parts) != 0 {
		t.Fatalf("expected activity B untouched, got %d rows", len(parts))
	}
}

func TestSubmitUnknownOptionSize(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)

	_, err := ExecuteSubmitParticipation(context.Background(), SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 3}, h.submitDeps())
	if !errors.Is(err, ErrUnknownOptionSize) {
		t.Fatalf("expected ErrUnknownOptionSize, got %v", err)
	}
}

func TestSubmitUnknownActivity(t *testing.T) {
	h := newEngineHarness()
	_, err := ExecuteSubmitParticipation(context.Background(), SubmitParticipationInput{ActivityID: "missing", UserID: "u1", OptionSize: 2}, h.submitDeps())
	if !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestSubmitAfterStartRejected(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.now = act.Start.Add(time.Minute)
	h.ledger.fund("u1", ledger.CurrencyMoney, 5000)

	_, err := ExecuteSubmitParticipation(context.Background(), SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps())
	if !errors.Is(err, ErrActivityClosed) {
		t.Fatalf("expected ErrActivityClosed, got %v", err)
	}
}

func TestSubmitNoCourtKeepsRaceOpen(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	h.calendar.conflict = true
	for _, u := range []string{"u1", "u2", "u3"} {
		h.ledger.fund(u, ledger.CurrencyMoney, 5000)
	}
	ctx := context.Background()

	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	res, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u2", OptionSize: 2}, h.submitDeps())
	if err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	if res.Confirmed {
		t.Fatal("no court available must leave the race open")
	}

	// Blocks stay in place while the activity waits for a resource.
	for _, u := range []string{"u1", "u2"} {
		if b := h.ledger.balance(u, ledger.CurrencyMoney); b.Blocked != 1000 {
			t.Fatalf("user %s: expected block retained, got %+v", u, b)
		}
	}

	// A court frees up; the next submission re-runs the race and the two
	// earliest arrivals win.
	h.calendar.conflict = false
	res, err = ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u3", OptionSize: 2}, h.submitDeps())
	if err != nil {
		t.Fatalf("submit u3: %v", err)
	}
	if res.Confirmed {
		t.Fatal("u3 arrived third and must not be among the pair winners")
	}
	if b := h.ledger.balance("u3", ledger.CurrencyMoney); b.Total != 5000 || b.Blocked != 0 {
		t.Fatalf("u3 must be refunded as a loser, got %+v", b)
	}
	for _, u := range []string{"u1", "u2"} {
		if b := h.ledger.balance(u, ledger.CurrencyMoney); b.Total != 4000 || b.Blocked != 0 {
			t.Fatalf("winner %s: expected settled share, got %+v", u, b)
		}
	}
}

func TestSubmitReleasesCourtWhenActivitySaveFails(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	for _, u := range []string{"u1", "u2", "u3"} {
		h.ledger.fund(u, ledger.CurrencyMoney, 5000)
	}
	ctx := context.Background()

	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u1", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("submit u1: %v", err)
	}

	// The pair completes, the court is assigned, but persisting the
	// activity fails mid-race.
	saveErr := errors.New("storage down")
	h.activities.failNextSave = saveErr
	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u2", OptionSize: 2}, h.submitDeps()); !errors.Is(err, saveErr) {
		t.Fatalf("expected the save failure to surface, got %v", err)
	}

	// The occupancy rows must be handed back, otherwise the activity is
	// in permanent self-conflict and can never confirm.
	if h.calendar.releases != 1 {
		t.Fatalf("expected 1 release after failed save, got %d", h.calendar.releases)
	}
	if n := len(h.calendar.assigned); n != 0 {
		t.Fatalf("expected no court held after failed save, got %d", n)
	}
	reloaded, err := h.activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("reload activity: %v", err)
	}
	if reloaded.IsConfirmed() {
		t.Fatal("activity must stay unconfirmed after the failed save")
	}

	// A later submission re-runs the race and the earliest pair wins.
	if _, err := ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: "u3", OptionSize: 2}, h.submitDeps()); err != nil {
		t.Fatalf("submit u3: %v", err)
	}
	reloaded, err = h.activities.GetByID(ctx, act.ID)
	if err != nil {
		t.Fatalf("reload activity: %v", err)
	}
	if reloaded.CourtID != "court-1" {
		t.Fatalf("expected the retry to assign court-1, got %q", reloaded.CourtID)
	}
	for _, u := range []string{"u1", "u2"} {
		if b := h.ledger.balance(u, ledger.CurrencyMoney); b.Total != 4000 || b.Blocked != 0 {
			t.Fatalf("winner %s: expected settled share, got %+v", u, b)
		}
	}
}

func TestSubmitConcurrentPairConfirmsExactlyOnce(t *testing.T) {
	h := newEngineHarness()
	act := h.seedActivity("act-1")
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		h.ledger.fund(u, ledger.CurrencyMoney, 5000)
	}
	ctx := context.Background()

	results := make([]SubmitParticipationResult, len(users))
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			results[i], errs[i] = ExecuteSubmitParticipation(ctx, SubmitParticipationInput{ActivityID: act.ID, UserID: u, OptionSize: 2}, h.submitDeps())
		}(i, u)
	}
	wg.Wait()

	// The activity lock serializes the submissions: one completes the
	// pair, and the rest find the race already closed.
	confirmed, closed := 0, 0
	for i := range users {
		switch {
		case errs[i] == nil:
			if results[i].Confirmed {
				confirmed++
				if results[i].CourtID != "court-1" {
					t.Fatalf("confirming submission missing court, got %+v", results[i])
				}
			}
		case errors.Is(errs[i], ErrActivityClosed):
			closed++
		default:
			t.Fatalf("user %s: unexpected error %v", users[i], errs[i])
		}
	}
	if confirmed != 1 {
		t.Fatalf("expected exactly one confirming submission, got %d", confirmed)
	}
	if closed != 2 {
		t.Fatalf("expected two late submissions rejected, got %d", closed)
	}
	if n := len(h.calendar.assigned); n != 1 {
		t.Fatalf("expected one court assignment, got %d", n)
	}

	parts, _ := h.participations.ListByActivity(ctx, act.ID)
	confirmedRows := 0
	for _, p := range parts {
		if p.Status == participationdomain.StatusConfirmed {
			confirmedRows++
		}
	}
	if confirmedRows != 2 {
		t.Fatalf("expected 2 confirmed rows, got %d", confirmedRows)
	}
	for _, u := range users {
		if b := h.ledger.balance(u, ledger.CurrencyMoney); b.Blocked != 0 {
			t.Fatalf("user %s: expected nothing left blocked, got %+v", u, b)
		}
	}
}
