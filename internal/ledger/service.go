package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kas-kecil/kas_kecil/internal/notification"
)

// Service orchestrates the allocator, the entry store and the balance cell.
// It is the sole writer of the balance and the only mutation path for
// entries. Every mutating operation is two-phase: validate against a
// snapshot of the current balance, commit the balance, then commit the
// entry. Rejections happen before any state is touched.
//
// A mutex serializes mutations so the service behaves as a single logical
// writer even on a multi-threaded host.
type Service struct {
	mu       sync.Mutex
	ids      Allocator
	store    Store
	balance  BalanceCell
	notifier notification.Notifier
	now      func() time.Time
}

// NewService wires a ledger service from its collaborators. The notifier is
// optional; pass nil to disable event emission.
func NewService(ids Allocator, store Store, balance BalanceCell, notifier notification.Notifier) *Service {
	return &Service{
		ids:      ids,
		store:    store,
		balance:  balance,
		notifier: notifier,
		now:      time.Now,
	}
}

// Add validates and records a new entry, applying its signed amount to the
// running balance. Debits that exceed the current balance are rejected.
func (s *Service) Add(ctx context.Context, p Payload) (Entry, error) {
	if p.Amount <= 0 {
		return Entry{}, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.balance.Get(ctx)
	if err != nil {
		return Entry{}, err
	}

	if p.EntryType == Debit && current < p.Amount {
		return Entry{}, fmt.Errorf("%w: current balance %v, required %v", ErrInsufficientFunds, current, p.Amount)
	}

	id, err := s.ids.NextID(ctx)
	if err != nil {
		return Entry{}, err
	}

	now := uint64(s.now().UnixNano())
	entry := Entry{
		ID:          id,
		Date:        now,
		Description: p.Description,
		Amount:      p.Amount,
		EntryType:   p.EntryType,
		Category:    p.Category,
		ReceiptURL:  p.ReceiptURL,
		ApprovedBy:  p.ApprovedBy,
		CreatedAt:   now,
	}

	// The size bound is validated before the balance commit so an oversized
	// entry rejects with no partial mutation.
	if err := checkEntrySize(entry); err != nil {
		return Entry{}, err
	}

	if err := s.balance.Set(ctx, current+entry.delta()); err != nil {
		return Entry{}, err
	}
	if err := s.store.Put(ctx, entry); err != nil {
		return Entry{}, err
	}

	s.notify(ctx, notification.KindEntryAdded, entry)
	return entry, nil
}

// Get returns the entry stored under id.
func (s *Service) Get(ctx context.Context, id uint64) (Entry, error) {
	entry, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	return entry, nil
}

// Balance returns the current running balance.
func (s *Service) Balance(ctx context.Context) (float64, error) {
	return s.balance.Get(ctx)
}

// EntriesBetween returns all entries whose date falls within the inclusive
// [start, end] window. A window with start > end matches nothing.
func (s *Service) EntriesBetween(ctx context.Context, start, end uint64) ([]Entry, error) {
	return s.store.Range(ctx, start, end)
}

// Update replaces the mutable fields of an existing entry. The old entry's
// balance effect is reversed and the new payload's effect applied in one
// step; if the candidate balance would go negative the update is rejected
// with no state change. ID and CreatedAt are never touched.
//
// Deliberately mirrors the recorded behavior: unlike Add, Update does not
// reject a non-positive amount on its own. See DESIGN.md.
func (s *Service) Update(ctx context.Context, id uint64, p Payload) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}

	current, err := s.balance.Get(ctx)
	if err != nil {
		return Entry{}, err
	}

	next := Entry{
		ID:          entry.ID,
		Date:        entry.Date,
		Description: p.Description,
		Amount:      p.Amount,
		EntryType:   p.EntryType,
		Category:    p.Category,
		ReceiptURL:  p.ReceiptURL,
		ApprovedBy:  p.ApprovedBy,
		CreatedAt:   entry.CreatedAt,
	}

	candidate := current + entry.reverseDelta() + next.delta()
	if candidate < 0 {
		return Entry{}, fmt.Errorf("%w: update would result in negative balance", ErrInsufficientFunds)
	}

	updatedAt := uint64(s.now().UnixNano())
	next.UpdatedAt = &updatedAt

	if err := checkEntrySize(next); err != nil {
		return Entry{}, err
	}

	if err := s.balance.Set(ctx, candidate); err != nil {
		return Entry{}, err
	}
	if err := s.store.Put(ctx, next); err != nil {
		return Entry{}, err
	}

	s.notify(ctx, notification.KindEntryUpdated, next)
	return next, nil
}

// Delete removes an entry and reverses its balance effect unconditionally.
// Reversing a Debit can only raise the balance; reversing a Credit lowers
// it without a non-negativity re-check, matching the recorded behavior.
// Returns the pre-deletion snapshot of the entry.
func (s *Service) Delete(ctx context.Context, id uint64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}

	current, err := s.balance.Get(ctx)
	if err != nil {
		return Entry{}, err
	}

	if err := s.balance.Set(ctx, current+entry.reverseDelta()); err != nil {
		return Entry{}, err
	}
	if _, _, err := s.store.Remove(ctx, id); err != nil {
		return Entry{}, err
	}

	s.notify(ctx, notification.KindEntryDeleted, entry)
	return entry, nil
}

// notify emits a best-effort event after a committed mutation. Delivery
// failures never fail the mutation.
func (s *Service) notify(ctx context.Context, kind string, entry Entry) {
	if s.notifier == nil {
		return
	}
	balance, err := s.balance.Get(ctx)
	if err != nil {
		balance = 0
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:       kind,
		EntryID:    entry.ID,
		EntryType:  string(entry.EntryType),
		Amount:     entry.Amount,
		Category:   entry.Category,
		Balance:    balance,
		OccurredAt: s.now().UTC(),
	})
}
