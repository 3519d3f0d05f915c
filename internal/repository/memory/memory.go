// Package memory is an in-process implementation of the repository interfaces.
// It backs local development and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/repository"
)

type state struct {
	rentals map[string]domain.RentalTransaction
	outbox  []domain.OutboxEvent
}

func (s *state) clone() *state {
	c := &state{
		rentals: make(map[string]domain.RentalTransaction, len(s.rentals)),
		outbox:  make([]domain.OutboxEvent, len(s.outbox)),
	}
	for id, rt := range s.rentals {
		c.rentals[id] = rt
	}
	copy(c.outbox, s.outbox)
	return c
}

// Store holds everything behind one RWMutex. WithinTx takes the write lock for
// the whole callback, so transactions are fully serialized.
type Store struct {
	mu    sync.RWMutex
	state *state
	items map[string]domain.Item
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: &state{rentals: make(map[string]domain.RentalTransaction)},
		items: make(map[string]domain.Item),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Tests use it to order created_at values.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) PutItem(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

func (s *Store) GetDailyRate(ctx context.Context, itemID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return item.PricePerDay, nil
}

func (s *Store) GetOwnerID(ctx context.Context, itemID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return item.OwnerID, nil
}

// WithinTx runs fn against a private copy of the state and swaps it in when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	v := &view{st: work, items: s.items, now: s.now}
	if err := fn(v); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Outside a transaction each call is its own short critical section.

func (s *Store) Rentals() repository.RentalRepository { return &autoCommit{s: s} }
func (s *Store) Outbox() repository.OutboxRepository  { return &autoCommit{s: s} }

type autoCommit struct {
	s *Store
}

func (a *autoCommit) read(fn func(v *view)) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	fn(&view{st: a.s.state, items: a.s.items, now: a.s.now})
}

func (a *autoCommit) write(fn func(v *view) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(&view{st: a.s.state, items: a.s.items, now: a.s.now})
}

func (a *autoCommit) Create(ctx context.Context, rt *domain.RentalTransaction) error {
	return a.write(func(v *view) error { return v.Create(ctx, rt) })
}

func (a *autoCommit) GetByID(ctx context.Context, id string) (rt *domain.RentalTransaction, err error) {
	a.read(func(v *view) { rt, err = v.GetByID(ctx, id) })
	return
}

func (a *autoCommit) GetByIDsForUpdate(ctx context.Context, ids []string) (out []domain.RentalTransaction, err error) {
	a.read(func(v *view) { out, err = v.GetByIDsForUpdate(ctx, ids) })
	return
}

func (a *autoCommit) ListOverlapping(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet) (out []domain.RentalTransaction, err error) {
	a.read(func(v *view) { out, err = v.ListOverlapping(ctx, itemID, start, end, exclude) })
	return
}

func (a *autoCommit) UpdateStatus(ctx context.Context, id string, expected []domain.RentalStatus, to domain.RentalStatus, token *string) (rt *domain.RentalTransaction, err error) {
	err = a.write(func(v *view) error {
		var e error
		rt, e = v.UpdateStatus(ctx, id, expected, to, token)
		return e
	})
	return
}

func (a *autoCommit) ListByRenter(ctx context.Context, renterID string, f repository.RentalFilter) (out []domain.RentalTransaction, err error) {
	a.read(func(v *view) { out, err = v.ListByRenter(ctx, renterID, f) })
	return
}

func (a *autoCommit) ListByOwner(ctx context.Context, ownerID string, f repository.RentalFilter) (out []domain.RentalTransaction, err error) {
	a.read(func(v *view) { out, err = v.ListByOwner(ctx, ownerID, f) })
	return
}

func (a *autoCommit) CountStale(ctx context.Context, status domain.RentalStatus, olderThan time.Time) (n int64, err error) {
	a.read(func(v *view) { n, err = v.CountStale(ctx, status, olderThan) })
	return
}

func (a *autoCommit) LockItemTimeline(ctx context.Context, itemID string) error { return nil }

func (a *autoCommit) Append(ctx context.Context, ev *domain.OutboxEvent) error {
	return a.write(func(v *view) error { return v.Append(ctx, ev) })
}

func (a *autoCommit) ListUnpublished(ctx context.Context, limit int) (out []domain.OutboxEvent, err error) {
	a.read(func(v *view) { out, err = v.ListUnpublished(ctx, limit) })
	return
}

func (a *autoCommit) MarkPublished(ctx context.Context, id string, at time.Time) error {
	return a.write(func(v *view) error { return v.MarkPublished(ctx, id, at) })
}

// view operates on one state snapshot. The caller holds the store lock.
type view struct {
	st    *state
	items map[string]domain.Item
	now   func() time.Time
}

func (v *view) Rentals() repository.RentalRepository { return v }
func (v *view) Outbox() repository.OutboxRepository  { return v }

func (v *view) Create(ctx context.Context, rt *domain.RentalTransaction) error {
	if _, ok := v.items[rt.ItemID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, rt.ItemID)
	}
	if holdsWindow(rt.Status) {
		for _, other := range v.st.rentals {
			if other.ItemID == rt.ItemID && holdsWindow(other.Status) && other.OverlapsRange(rt.StartDate, rt.EndDate) {
				return &domain.AvailabilityConflictError{ItemID: rt.ItemID, Start: rt.StartDate, End: rt.EndDate, ConflictingID: other.ID}
			}
		}
	}
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = v.now()
	}
	rt.UpdatedAt = rt.CreatedAt
	v.st.rentals[rt.ID] = copyRental(*rt)
	return nil
}

// holdsWindow mirrors the rentals_no_overlap predicate of the SQL schema.
func holdsWindow(s domain.RentalStatus) bool {
	return s != domain.RentalStatusDraft && s != domain.RentalStatusCancelled
}

func (v *view) GetByID(ctx context.Context, id string) (*domain.RentalTransaction, error) {
	rt, ok := v.st.rentals[id]
	if !ok {
		return nil, domain.ErrRentalNotFound
	}
	out := copyRental(rt)
	return &out, nil
}

func (v *view) GetByIDsForUpdate(ctx context.Context, ids []string) ([]domain.RentalTransaction, error) {
	seen := make(map[string]struct{}, len(ids))
	var out []domain.RentalTransaction
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if rt, ok := v.st.rentals[id]; ok {
			out = append(out, copyRental(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) ListOverlapping(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet) ([]domain.RentalTransaction, error) {
	var out []domain.RentalTransaction
	for _, rt := range v.st.rentals {
		if rt.ItemID == itemID && !exclude.Contains(rt.Status) && rt.OverlapsRange(start, end) {
			out = append(out, copyRental(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) UpdateStatus(ctx context.Context, id string, expected []domain.RentalStatus, to domain.RentalStatus, token *string) (*domain.RentalTransaction, error) {
	rt, ok := v.st.rentals[id]
	if !ok || !domain.NewStatusSet(expected...).Contains(rt.Status) || (token != nil && rt.PaymentToken != nil) {
		return nil, &domain.StaleStateError{RentalID: id, Expected: expected}
	}
	if !holdsWindow(rt.Status) && holdsWindow(to) {
		for _, other := range v.st.rentals {
			if other.ID != id && other.ItemID == rt.ItemID && holdsWindow(other.Status) && other.OverlapsRange(rt.StartDate, rt.EndDate) {
				return nil, &domain.AvailabilityConflictError{ItemID: rt.ItemID, Start: rt.StartDate, End: rt.EndDate, ConflictingID: other.ID}
			}
		}
	}
	rt.Status = to
	if token != nil {
		t := *token
		rt.PaymentToken = &t
	}
	rt.UpdatedAt = v.now()
	v.st.rentals[id] = rt
	out := copyRental(rt)
	return &out, nil
}

func (v *view) ListByRenter(ctx context.Context, renterID string, f repository.RentalFilter) ([]domain.RentalTransaction, error) {
	return v.list(func(rt domain.RentalTransaction) bool { return rt.RenterID == renterID }, f), nil
}

func (v *view) ListByOwner(ctx context.Context, ownerID string, f repository.RentalFilter) ([]domain.RentalTransaction, error) {
	return v.list(func(rt domain.RentalTransaction) bool { return rt.OwnerID == ownerID }, f), nil
}

func (v *view) list(match func(domain.RentalTransaction) bool, f repository.RentalFilter) []domain.RentalTransaction {
	var out []domain.RentalTransaction
	for _, rt := range v.st.rentals {
		if !match(rt) || f.Exclude.Contains(rt.Status) {
			continue
		}
		if len(f.Include) > 0 && !f.Include.Contains(rt.Status) {
			continue
		}
		out = append(out, copyRental(rt))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *view) CountStale(ctx context.Context, status domain.RentalStatus, olderThan time.Time) (int64, error) {
	var n int64
	for _, rt := range v.st.rentals {
		if rt.Status == status && rt.UpdatedAt.Before(olderThan) {
			n++
		}
	}
	return n, nil
}

// LockItemTimeline is a no-op: the caller already holds the store-wide lock.
func (v *view) LockItemTimeline(ctx context.Context, itemID string) error { return nil }

func (v *view) Append(ctx context.Context, ev *domain.OutboxEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = v.now()
	}
	v.st.outbox = append(v.st.outbox, *ev)
	return nil
}

func (v *view) ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	var out []domain.OutboxEvent
	for _, ev := range v.st.outbox {
		if ev.PublishedAt != nil {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (v *view) MarkPublished(ctx context.Context, id string, at time.Time) error {
	for i := range v.st.outbox {
		if v.st.outbox[i].ID == id && v.st.outbox[i].PublishedAt == nil {
			t := at
			v.st.outbox[i].PublishedAt = &t
		}
	}
	return nil
}

func copyRental(rt domain.RentalTransaction) domain.RentalTransaction {
	if rt.PaymentToken != nil {
		t := *rt.PaymentToken
		rt.PaymentToken = &t
	}
	return rt
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*view)(nil)
)
