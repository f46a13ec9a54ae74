package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the referenced entry id does not exist in the store.
	ErrNotFound = errors.New("entry not found")

	// ErrInvalidAmount occurs when a new entry carries a non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds occurs when a mutation would drive the running
	// balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrEntryTooLarge indicates the serialized entry exceeds MaxEntryBytes.
	// It is a persistence failure, not a recoverable ledger error.
	ErrEntryTooLarge = errors.New("serialized entry exceeds size bound")
)

// MaxEntryBytes bounds the serialized size of a stored entry. Entries whose
// JSON encoding exceeds this are rejected by every Store implementation.
const MaxEntryBytes = 2048

// EntryType classifies a cash movement.
type EntryType string

const (
	// Debit is a cash outflow; it decreases the running balance.
	Debit EntryType = "debit"
	// Credit is a cash inflow (e.g. a kas top-up); it increases the balance.
	Credit EntryType = "credit"
)

// Valid reports whether t is one of the two known entry types.
func (t EntryType) Valid() bool {
	return t == Debit || t == Credit
}

// Entry is one recorded cash movement. ID and CreatedAt are assigned once and
// never change; every other field is replaceable via Update. Timestamps are
// nanoseconds since the Unix epoch.
type Entry struct {
	ID          uint64    `json:"id"`
	Date        uint64    `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	EntryType   EntryType `json:"entry_type"`
	Category    string    `json:"category"`
	ReceiptURL  *string   `json:"receipt_url,omitempty"`
	ApprovedBy  *string   `json:"approved_by,omitempty"`
	CreatedAt   uint64    `json:"created_at"`
	UpdatedAt   *uint64   `json:"updated_at,omitempty"`
}

// delta is the signed effect of the entry on the running balance.
func (e Entry) delta() float64 {
	if e.EntryType == Credit {
		return e.Amount
	}
	return -e.Amount
}

// reverseDelta is the adjustment that undoes the entry's recorded effect.
func (e Entry) reverseDelta() float64 {
	return -e.delta()
}

// Payload carries caller-supplied entry fields. Identity and timestamps are
// always server-assigned.
type Payload struct {
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	EntryType   EntryType `json:"entry_type"`
	Category    string    `json:"category"`
	ReceiptURL  *string   `json:"receipt_url,omitempty"`
	ApprovedBy  *string   `json:"approved_by,omitempty"`
}

// Allocator issues strictly increasing entry identifiers. NextID durably
// advances the counter by one and returns the new value, so ids start at 1
// and are never reissued, even across restarts or after deletes.
type Allocator interface {
	NextID(ctx context.Context) (uint64, error)
}

// Store is an ordered map from entry id to Entry. Implementations enforce
// the MaxEntryBytes bound in Put and keep each single-key write atomic.
type Store interface {
	Get(ctx context.Context, id uint64) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, id uint64) (Entry, bool, error)
	// Range returns every entry whose Date falls within [start, end],
	// in ascending id order. It is a full scan: O(n) in store size.
	Range(ctx context.Context, start, end uint64) ([]Entry, error)
}

// BalanceCell is a single persisted scalar holding the current net balance.
// It performs no validation of its own; the Service owns the invariants.
type BalanceCell interface {
	Get(ctx context.Context) (float64, error)
	Set(ctx context.Context, value float64) error
}
