package orchestrators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courtside/internal/adapters/events"
	activitystore "courtside/internal/adapters/storage/activity"
	participationstore "courtside/internal/adapters/storage/participation"
	"courtside/internal/application/calendar"
	"courtside/internal/application/keylock"
	"courtside/internal/application/ledgerops"
	activitydomain "courtside/internal/domain/activity"
	"courtside/internal/domain/ledger"
	"courtside/internal/domain/occupancy"
	participationdomain "courtside/internal/domain/participation"
)

type memActivityStore struct {
	mu           sync.Mutex
	items        map[string]activitydomain.Activity
	parts        *memParticipationStore
	failNextSave error // returned by the next Save call, then cleared
}

func newMemActivityStore() *memActivityStore {
	return &memActivityStore{items: make(map[string]activitydomain.Activity)}
}

func (s *memActivityStore) GetByID(_ context.Context, id string) (activitydomain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.items[id]
	if !ok {
		return activitydomain.Activity{}, activitystore.ErrNotFound
	}
	return act, nil
}

func (s *memActivityStore) Save(_ context.Context, value activitydomain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextSave != nil {
		err := s.failNextSave
		s.failNextSave = nil
		return err
	}
	s.items[value.ID] = value
	return nil
}

func (s *memActivityStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *memActivityStore) ListPastEmptyIDs(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, act := range s.items {
		if !act.End.Before(before) {
			continue
		}
		if s.parts != nil && s.parts.countByActivity(id) > 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type memParticipationStore struct {
	mu         sync.Mutex
	items      map[string]participationdomain.Participation
	order      []string
	activities *memActivityStore
}

func newMemParticipationStore(activities *memActivityStore) *memParticipationStore {
	s := &memParticipationStore{items: make(map[string]participationdomain.Participation), activities: activities}
	if activities != nil {
		activities.parts = s
	}
	return s
}

func (s *memParticipationStore) GetByID(_ context.Context, id string) (participationdomain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return participationdomain.Participation{}, participationstore.ErrNotFound
	}
	return p, nil
}

func (s *memParticipationStore) Save(_ context.Context, value participationdomain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[value.ID]; !exists {
		s.order = append(s.order, value.ID)
	}
	s.items[value.ID] = value
	return nil
}

func (s *memParticipationStore) ListByActivity(_ context.Context, activityID string) ([]participationdomain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []participationdomain.Participation
	for _, id := range s.order {
		if p := s.items[id]; p.ActivityID == activityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memParticipationStore) GetActiveByActivityAndUser(_ context.Context, activityID, userID string) (participationdomain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		p := s.items[id]
		if p.ActivityID == activityID && p.UserID == userID && p.IsActive() {
			return p, nil
		}
	}
	return participationdomain.Participation{}, participationstore.ErrNotFound
}

func (s *memParticipationStore) CountConfirmedByUserOnDate(_ context.Context, userID, date, excludeActivityID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.items {
		if p.UserID != userID || p.Status != participationdomain.StatusConfirmed || p.ActivityID == excludeActivityID {
			continue
		}
		if s.activities == nil {
			continue
		}
		s.activities.mu.Lock()
		act, ok := s.activities.items[p.ActivityID]
		s.activities.mu.Unlock()
		if ok && act.Date() == date {
			count++
		}
	}
	return count, nil
}

func (s *memParticipationStore) ListByUser(_ context.Context, userID string) ([]participationdomain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []participationdomain.Participation
	for _, id := range s.order {
		if p := s.items[id]; p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memParticipationStore) countByActivity(activityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.items {
		if p.ActivityID == activityID {
			n++
		}
	}
	return n
}

// fakeLedger applies real block/settle arithmetic against in-memory balances.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]ledger.Balance
	txCount  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]ledger.Balance)}
}

func balKey(userID string, c ledger.Currency) string { return userID + ":" + string(c) }

func (l *fakeLedger) fund(userID string, c ledger.Currency, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[balKey(userID, c)]
	b.Total += amount
	l.balances[balKey(userID, c)] = b
}

func (l *fakeLedger) balance(userID string, c ledger.Currency) ledger.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balKey(userID, c)]
}

func (l *fakeLedger) Block(_ context.Context, userID string, c ledger.Currency, amount int64, _ ledgerops.Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[balKey(userID, c)]
	if !b.CanBlock(amount) {
		return ledgerops.ErrInsufficientFunds
	}
	b.Blocked += amount
	l.balances[balKey(userID, c)] = b
	l.txCount++
	return nil
}

func (l *fakeLedger) Unblock(_ context.Context, userID string, c ledger.Currency, amount int64, _ ledgerops.Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[balKey(userID, c)]
	b.Blocked -= amount
	if b.Blocked < 0 {
		b.Blocked = 0
	}
	l.balances[balKey(userID, c)] = b
	l.txCount++
	return nil
}

func (l *fakeLedger) Settle(_ context.Context, userID string, c ledger.Currency, amount int64, _ ledgerops.Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[balKey(userID, c)]
	if b.Blocked < amount {
		return ledgerops.ErrInvariantViolation
	}
	b.Blocked -= amount
	b.Total -= amount
	l.balances[balKey(userID, c)] = b
	l.txCount++
	return nil
}

func (l *fakeLedger) Credit(_ context.Context, userID string, c ledger.Currency, amount int64, _ ledgerops.Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[balKey(userID, c)]
	b.Total += amount
	l.balances[balKey(userID, c)] = b
	l.txCount++
	return nil
}

func (l *fakeLedger) GrantCompensation(ctx context.Context, userID string, moneyAmount int64, ref ledgerops.Ref) (int64, error) {
	points := ledger.PointsForMinorUnits(moneyAmount)
	if err := l.Credit(ctx, userID, ledger.CurrencyPoints, points, ref); err != nil {
		return 0, err
	}
	return points, nil
}

// fakeCalendar hands out a fixed court unless told to conflict.
type fakeCalendar struct {
	mu       sync.Mutex
	conflict bool
	assigned map[string]string
	releases int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{assigned: make(map[string]string)}
}

func (c *fakeCalendar) AssignFirstAvailable(_ context.Context, _, _, activityID string, _ occupancy.Window) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conflict {
		return "", calendar.ErrResourceConflict
	}
	c.assigned[activityID] = "court-1"
	return "court-1", nil
}

func (c *fakeCalendar) Release(_ context.Context, activityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assigned, activityID)
	c.releases++
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// engineHarness wires the fakes into ready-to-use dep structs.
type engineHarness struct {
	activities     *memActivityStore
	participations *memParticipationStore
	ledger         *fakeLedger
	calendar       *fakeCalendar
	publisher      *fakePublisher
	locks          *keylock.Manager
	now            time.Time
	idMu           sync.Mutex
	idSeq          int
}

func newEngineHarness() *engineHarness {
	activities := newMemActivityStore()
	return &engineHarness{
		activities:     activities,
		participations: newMemParticipationStore(activities),
		ledger:         newFakeLedger(),
		calendar:       newFakeCalendar(),
		publisher:      &fakePublisher{},
		locks:          keylock.NewManager(time.Second),
		now:            time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (h *engineHarness) generateID() string {
	h.idMu.Lock()
	defer h.idMu.Unlock()
	h.idSeq++
	return fmt.Sprintf("id-%d", h.idSeq)
}

func (h *engineHarness) submitDeps() SubmitParticipationDeps {
	return SubmitParticipationDeps{
		Activities:     h.activities,
		Participations: h.participations,
		Ledger:         h.ledger,
		Calendar:       h.calendar,
		Publisher:      h.publisher,
		Locks:          h.locks,
		GenerateID:     h.generateID,
		Now:            func() time.Time { return h.now },
	}
}

func (h *engineHarness) leaveDeps() LeaveActivityDeps {
	return LeaveActivityDeps{
		Activities:     h.activities,
		Participations: h.participations,
		Ledger:         h.ledger,
		Calendar:       h.calendar,
		Publisher:      h.publisher,
		Locks:          h.locks,
		Now:            func() time.Time { return h.now },
	}
}

func (h *engineHarness) pointsDeps() BookWithPointsDeps {
	return BookWithPointsDeps{
		Activities:     h.activities,
		Participations: h.participations,
		Ledger:         h.ledger,
		Calendar:       h.calendar,
		Publisher:      h.publisher,
		Locks:          h.locks,
		GenerateID:     h.generateID,
		Now:            func() time.Time { return h.now },
	}
}

// seedActivity stores a standard two-option activity starting this evening.
func (h *engineHarness) seedActivity(id string) activitydomain.Activity {
	act := activitydomain.Activity{
		ID:           id,
		ClubID:       "club-1",
		InstructorID: "instructor-1",
		Start:        h.now.Add(9 * time.Hour),
		End:          h.now.Add(10 * time.Hour),
		Options: []activitydomain.Option{
			{Size: 2, Price: 2000},
			{Size: 4, Price: 3200},
		},
		MaxPlayers: 4,
	}
	if err := h.activities.Save(context.Background(), act); err != nil {
		panic(err)
	}
	return act
}
