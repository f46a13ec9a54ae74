package ledger

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(NewMemoryAllocator(), NewMemoryStore(), NewMemoryBalanceCell(), nil)
}

func mustAdd(t *testing.T, svc *Service, entryType EntryType, amount float64) Entry {
	t.Helper()
	entry, err := svc.Add(context.Background(), Payload{
		Description: "test entry",
		Amount:      amount,
		EntryType:   entryType,
		Category:    "misc",
	})
	if err != nil {
		t.Fatalf("add %s %v: %v", entryType, amount, err)
	}
	return entry
}

func mustBalance(t *testing.T, svc *Service) float64 {
	t.Helper()
	balance, err := svc.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	svc := newTestService()

	first := mustAdd(t, svc, Credit, 100)
	second := mustAdd(t, svc, Credit, 50)

	if first.ID != 1 {
		t.Fatalf("expected first id 1, got %d", first.ID)
	}
	if second.ID != 2 {
		t.Fatalf("expected second id 2, got %d", second.ID)
	}
}

func TestAddRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	receipt := "https://receipts.example/42.pdf"
	approver := "bendahara"
	added, err := svc.Add(ctx, Payload{
		Description: "office supplies",
		Amount:      75.5,
		EntryType:   Debit,
		Category:    "supplies",
		ReceiptURL:  &receipt,
		ApprovedBy:  &approver,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds on empty ledger, got %v", err)
	}

	mustAdd(t, svc, Credit, 100)
	added, err = svc.Add(ctx, Payload{
		Description: "office supplies",
		Amount:      75.5,
		EntryType:   Debit,
		Category:    "supplies",
		ReceiptURL:  &receipt,
		ApprovedBy:  &approver,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	fetched, err := svc.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(added, fetched) {
		t.Fatalf("round trip mismatch: added %+v fetched %+v", added, fetched)
	}
	if fetched.UpdatedAt != nil {
		t.Fatalf("fresh entry must not carry updated_at")
	}
	if fetched.CreatedAt == 0 || fetched.Date != fetched.CreatedAt {
		t.Fatalf("expected date and created_at stamped together, got %+v", fetched)
	}
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, amount := range []float64{0, -10} {
		if _, err := svc.Add(ctx, Payload{Amount: amount, EntryType: Credit}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %v: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	if balance := mustBalance(t, svc); balance != 0 {
		t.Fatalf("balance changed after rejected adds: %v", balance)
	}
	entries, err := svc.EntriesBetween(ctx, 0, ^uint64(0))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("store changed after rejected adds: %d entries", len(entries))
	}
}

func TestAddDebitInsufficientFunds(t *testing.T) {
	svc := newTestService()

	mustAdd(t, svc, Credit, 100)
	if _, err := svc.Add(context.Background(), Payload{Amount: 100.01, EntryType: Debit}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("balance changed after rejected debit: %v", balance)
	}
}

func TestBalanceEqualsSignedSum(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 500)
	mustAdd(t, svc, Debit, 120)
	mustAdd(t, svc, Credit, 30.25)
	mustAdd(t, svc, Debit, 10.25)

	entries, err := svc.EntriesBetween(ctx, 0, ^uint64(0))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	var sum float64
	for _, entry := range entries {
		if entry.EntryType == Credit {
			sum += entry.Amount
		} else {
			sum -= entry.Amount
		}
	}
	if balance := mustBalance(t, svc); balance != sum {
		t.Fatalf("balance %v does not equal signed sum %v", balance, sum)
	}
}

func TestBalanceReadIsIdempotent(t *testing.T) {
	svc := newTestService()
	mustAdd(t, svc, Credit, 42)

	first := mustBalance(t, svc)
	second := mustBalance(t, svc)
	if first != second {
		t.Fatalf("balance reads differ: %v vs %v", first, second)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService()
	mustAdd(t, svc, Credit, 100)

	if _, err := svc.Update(context.Background(), 99, Payload{Amount: 10, EntryType: Credit}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("balance changed on not-found update: %v", balance)
	}
}

func TestUpdateReversalArithmetic(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)
	debit := mustAdd(t, svc, Debit, 30)
	if balance := mustBalance(t, svc); balance != 70 {
		t.Fatalf("expected balance 70, got %v", balance)
	}

	// Reverse the old Debit (+30) then apply the new Debit (-50): 70+30-50.
	updated, err := svc.Update(ctx, debit.ID, Payload{
		Description: "reimbursement corrected",
		Amount:      50,
		EntryType:   Debit,
		Category:    "transport",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if balance := mustBalance(t, svc); balance != 50 {
		t.Fatalf("expected balance 50 after update, got %v", balance)
	}
	if updated.ID != debit.ID || updated.CreatedAt != debit.CreatedAt {
		t.Fatalf("update must not touch id or created_at: %+v vs %+v", updated, debit)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("update must stamp updated_at")
	}
	if updated.Amount != 50 || updated.Description != "reimbursement corrected" || updated.Category != "transport" {
		t.Fatalf("fields not replaced: %+v", updated)
	}
}

func TestUpdateAtomicRejection(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)
	debit := mustAdd(t, svc, Debit, 30)

	// Candidate 70+30-200 < 0: rejected with neither balance nor entry touched.
	if _, err := svc.Update(ctx, debit.ID, Payload{Amount: 200, EntryType: Debit}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 70 {
		t.Fatalf("balance changed on rejected update: %v", balance)
	}
	current, err := svc.Get(ctx, debit.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Amount != 30 || current.UpdatedAt != nil {
		t.Fatalf("entry changed on rejected update: %+v", current)
	}
}

func TestUpdateDoesNotValidateAmount(t *testing.T) {
	// Update intentionally skips the amount > 0 check that Add performs; the
	// only guard is the non-negative candidate balance.
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)
	debit := mustAdd(t, svc, Debit, 30)

	updated, err := svc.Update(ctx, debit.ID, Payload{Amount: 0, EntryType: Debit})
	if err != nil {
		t.Fatalf("zero-amount update should pass the balance guard: %v", err)
	}
	if updated.Amount != 0 {
		t.Fatalf("expected stored amount 0, got %v", updated.Amount)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("expected balance 100 after zeroing the debit, got %v", balance)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTestService()
	mustAdd(t, svc, Credit, 100)

	if _, err := svc.Delete(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("balance changed on not-found delete: %v", balance)
	}
}

func TestDeleteReversesDebit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)
	debit := mustAdd(t, svc, Debit, 40)

	snapshot, err := svc.Delete(ctx, debit.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snapshot.ID != debit.ID || snapshot.Amount != 40 {
		t.Fatalf("expected pre-deletion snapshot, got %+v", snapshot)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("expected balance 100 after reversing debit, got %v", balance)
	}
	if _, err := svc.Get(ctx, debit.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry still present after delete: %v", err)
	}
}

func TestDeleteReversesCreditWithoutGuard(t *testing.T) {
	// Deleting a Credit subtracts its amount with no non-negativity re-check,
	// so the balance can legitimately go negative here.
	svc := newTestService()
	ctx := context.Background()

	credit := mustAdd(t, svc, Credit, 100)
	mustAdd(t, svc, Debit, 30)

	if _, err := svc.Delete(ctx, credit.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if balance := mustBalance(t, svc); balance != -30 {
		t.Fatalf("expected balance -30 after reversing credit, got %v", balance)
	}
}

func TestFullScenario(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	credit := mustAdd(t, svc, Credit, 100)
	if credit.ID != 1 {
		t.Fatalf("expected id 1, got %d", credit.ID)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("expected balance 100, got %v", balance)
	}

	debit := mustAdd(t, svc, Debit, 30)
	if debit.ID != 2 {
		t.Fatalf("expected id 2, got %d", debit.ID)
	}
	if balance := mustBalance(t, svc); balance != 70 {
		t.Fatalf("expected balance 70, got %v", balance)
	}

	if _, err := svc.Add(ctx, Payload{Amount: 1000, EntryType: Debit}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 70 {
		t.Fatalf("expected balance to stay 70, got %v", balance)
	}

	if _, err := svc.Update(ctx, debit.ID, Payload{Amount: 50, EntryType: Debit}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if balance := mustBalance(t, svc); balance != 50 {
		t.Fatalf("expected balance 50, got %v", balance)
	}

	if _, err := svc.Delete(ctx, credit.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if balance := mustBalance(t, svc); balance != -50 {
		t.Fatalf("expected balance -50, got %v", balance)
	}
}

func TestEntriesBetween(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	current := base
	SetNow(svc, func() time.Time { return current })

	var dates []uint64
	for i := 0; i < 4; i++ {
		current = base.AddDate(0, 0, i)
		entry := mustAdd(t, svc, Credit, 10)
		dates = append(dates, entry.Date)
	}

	entries, err := svc.EntriesBetween(ctx, dates[1], dates[2])
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in inclusive window, got %d", len(entries))
	}
	if entries[0].ID != 2 || entries[1].ID != 3 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	all, err := svc.EntriesBetween(ctx, 0, ^uint64(0))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}
}

func TestEntriesBetweenInvertedWindow(t *testing.T) {
	svc := newTestService()

	mustAdd(t, svc, Credit, 10)

	entries, err := svc.EntriesBetween(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty result for start > end, got %d", len(entries))
	}
}

func TestAddRejectsOversizedEntry(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)

	_, err := svc.Add(ctx, Payload{
		Description: strings.Repeat("x", MaxEntryBytes+1),
		Amount:      5,
		EntryType:   Debit,
	})
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge, got %v", err)
	}
	if balance := mustBalance(t, svc); balance != 100 {
		t.Fatalf("balance changed after rejected oversized add: %v", balance)
	}
}

func TestIDsNeverReused(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustAdd(t, svc, Credit, 100)
	second := mustAdd(t, svc, Credit, 10)

	if _, err := svc.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	third := mustAdd(t, svc, Credit, 10)
	if third.ID != 3 {
		t.Fatalf("expected id 3 after delete, got %d", third.ID)
	}
}
