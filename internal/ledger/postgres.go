package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	balanceCellName = "balance"
	entryCounterKey = "entry_id"
)

// EnsureSchema creates the three durable regions of the ledger if they do
// not already exist: the entry map, the balance cell and the id counter.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS petty_cash_entries (
			id BIGINT PRIMARY KEY,
			date_ns BIGINT NOT NULL,
			description TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			entry_type TEXT NOT NULL,
			category TEXT NOT NULL,
			receipt_url TEXT,
			approved_by TEXT,
			created_at_ns BIGINT NOT NULL,
			updated_at_ns BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS petty_cash_cells (
			name TEXT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS petty_cash_counters (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		)`,
		`INSERT INTO petty_cash_cells (name, value) VALUES ('balance', 0)
			ON CONFLICT (name) DO NOTHING`,
		`INSERT INTO petty_cash_counters (name, value) VALUES ('entry_id', 0)
			ON CONFLICT (name) DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// PostgresStore persists entries in a PostgreSQL table keyed by id.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed entry store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id uint64) (Entry, bool, error) {
	const query = `SELECT id, date_ns, description, amount, entry_type, category,
		receipt_url, approved_by, created_at_ns, updated_at_ns
		FROM petty_cash_entries WHERE id = $1`
	entry, err := scanEntry(s.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry Entry) error {
	if err := checkEntrySize(entry); err != nil {
		return err
	}
	const query = `INSERT INTO petty_cash_entries
		(id, date_ns, description, amount, entry_type, category, receipt_url, approved_by, created_at_ns, updated_at_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			date_ns = EXCLUDED.date_ns,
			description = EXCLUDED.description,
			amount = EXCLUDED.amount,
			entry_type = EXCLUDED.entry_type,
			category = EXCLUDED.category,
			receipt_url = EXCLUDED.receipt_url,
			approved_by = EXCLUDED.approved_by,
			updated_at_ns = EXCLUDED.updated_at_ns`
	var updatedAt *int64
	if entry.UpdatedAt != nil {
		v := int64(*entry.UpdatedAt)
		updatedAt = &v
	}
	_, err := s.db.Exec(ctx, query,
		int64(entry.ID), int64(entry.Date), entry.Description, entry.Amount,
		string(entry.EntryType), entry.Category, entry.ReceiptURL, entry.ApprovedBy,
		int64(entry.CreatedAt), updatedAt)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, id uint64) (Entry, bool, error) {
	const query = `DELETE FROM petty_cash_entries WHERE id = $1
		RETURNING id, date_ns, description, amount, entry_type, category,
		receipt_url, approved_by, created_at_ns, updated_at_ns`
	entry, err := scanEntry(s.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *PostgresStore) Range(ctx context.Context, start, end uint64) ([]Entry, error) {
	const query = `SELECT id, date_ns, description, amount, entry_type, category,
		receipt_url, approved_by, created_at_ns, updated_at_ns
		FROM petty_cash_entries WHERE date_ns >= $1 AND date_ns <= $2 ORDER BY id`
	rows, err := s.db.Query(ctx, query, int64(start), int64(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matched := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		matched = append(matched, entry)
	}
	return matched, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry     Entry
		id        int64
		dateNs    int64
		entryType string
		createdNs int64
		updatedNs *int64
	)
	if err := row.Scan(&id, &dateNs, &entry.Description, &entry.Amount, &entryType,
		&entry.Category, &entry.ReceiptURL, &entry.ApprovedBy, &createdNs, &updatedNs); err != nil {
		return Entry{}, err
	}
	entry.ID = uint64(id)
	entry.Date = uint64(dateNs)
	entry.EntryType = EntryType(entryType)
	entry.CreatedAt = uint64(createdNs)
	if updatedNs != nil {
		v := uint64(*updatedNs)
		entry.UpdatedAt = &v
	}
	return entry, nil
}

// PostgresBalanceCell stores the running balance in a single named row.
type PostgresBalanceCell struct {
	db *pgxpool.Pool
}

// NewPostgresBalanceCell constructs a Postgres-backed balance cell.
func NewPostgresBalanceCell(db *pgxpool.Pool) *PostgresBalanceCell {
	return &PostgresBalanceCell{db: db}
}

func (c *PostgresBalanceCell) Get(ctx context.Context) (float64, error) {
	const query = `SELECT value FROM petty_cash_cells WHERE name = $1`
	var value float64
	if err := c.db.QueryRow(ctx, query, balanceCellName).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return value, nil
}

func (c *PostgresBalanceCell) Set(ctx context.Context, value float64) error {
	const query = `INSERT INTO petty_cash_cells (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	_, err := c.db.Exec(ctx, query, balanceCellName, value)
	return err
}

// PostgresAllocator advances the id counter row atomically.
type PostgresAllocator struct {
	db *pgxpool.Pool
}

// NewPostgresAllocator constructs a Postgres-backed id allocator.
func NewPostgresAllocator(db *pgxpool.Pool) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

func (a *PostgresAllocator) NextID(ctx context.Context) (uint64, error) {
	const query = `UPDATE petty_cash_counters SET value = value + 1
		WHERE name = $1 RETURNING value`
	var value int64
	if err := a.db.QueryRow(ctx, query, entryCounterKey).Scan(&value); err != nil {
		return 0, err
	}
	return uint64(value), nil
}
