package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/models"
)

// LedgerStore persists the financial records materialized from alert
// emails: sources, transactions, stock operations and pending entries.
type LedgerStore struct {
	db          *sql.DB
	sourceCache *cache.Cache
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{
		db:          db,
		sourceCache: cache.New(1*time.Hour, 2*time.Hour),
	}
}

// IsUniqueViolation reports whether err is a unique-constraint failure
// from the sqlite driver.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// GetOrCreateSource resolves a source label to its row id, creating the
// row on first sight. Returns nil for an empty label. Resolved ids are
// cached per user to keep batch runs off the sources table.
func (s *LedgerStore) GetOrCreateSource(ctx context.Context, userID int64, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	key := fmt.Sprintf("src_%d_%s", userID, name)
	if v, found := s.sourceCache.Get(key); found {
		id := v.(int64)
		return &id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sources WHERE user_id = ? AND name = ?`, userID, name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, insErr := s.db.ExecContext(ctx,
			`INSERT INTO sources (user_id, name) VALUES (?, ?)`, userID, name)
		if insErr != nil {
			if !IsUniqueViolation(insErr) {
				return nil, fmt.Errorf("storage: creating source %q: %w", name, insErr)
			}
			// Lost the race to a concurrent insert; the row exists now.
			if err := s.db.QueryRowContext(ctx,
				`SELECT id FROM sources WHERE user_id = ? AND name = ?`, userID, name).Scan(&id); err != nil {
				return nil, fmt.Errorf("storage: re-reading source %q: %w", name, err)
			}
		} else {
			id, _ = res.LastInsertId()
		}
	case err != nil:
		return nil, fmt.Errorf("storage: looking up source %q: %w", name, err)
	}

	s.sourceCache.Set(key, id, cache.DefaultExpiration)
	return &id, nil
}

// TransactionExists reports whether the user already owns a transaction
// with the given external id. Always false for an empty id.
func (s *LedgerStore) TransactionExists(ctx context.Context, userID int64, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND external_id = ?`, userID, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: checking transaction external id: %w", err)
	}
	return n > 0, nil
}

// StockExists reports whether the user already owns a stock operation with
// the given external id. Always false for an empty id.
func (s *LedgerStore) StockExists(ctx context.Context, userID int64, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stocks WHERE user_id = ? AND external_id = ?`, userID, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: checking stock external id: %w", err)
	}
	return n > 0, nil
}

// CreateTransaction inserts a confirmed transaction and sets t.ID.
// A unique-constraint failure surfaces unwrapped for the caller to
// classify with IsUniqueViolation.
func (s *LedgerStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, source_id, external_id, description, amount, currency, date, comments, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullableInt64(t.SourceID), t.ExternalID,
		t.Description, t.Amount.String(), t.Currency, t.Date, t.Comments, t.Status)
	if err != nil {
		return err
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// CreateTrade inserts a stock operation and its paired cash transaction
// atomically, linking the stock row to the transaction it created.
func (s *LedgerStore) CreateTrade(ctx context.Context, t *models.Transaction, st *models.Stock) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: beginning trade transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, source_id, external_id, description, amount, currency, date, comments, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullableInt64(t.SourceID), t.ExternalID,
		t.Description, t.Amount.String(), t.Currency, t.Date, t.Comments, t.Status)
	if err != nil {
		return err
	}
	t.ID, _ = res.LastInsertId()
	st.TransactionID = &t.ID

	res, err = dbTx.ExecContext(ctx,
		`INSERT INTO stocks (user_id, transaction_id, external_id, symbol, bought, quantity, unit_price, date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.UserID, st.TransactionID, st.ExternalID,
		st.Symbol, st.Bought, st.Quantity.String(), st.UnitPrice.String(), st.Date)
	if err != nil {
		return err
	}
	st.ID, _ = res.LastInsertId()

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("storage: committing trade: %w", err)
	}
	return nil
}

// CreatePending parks a candidate that could not be confirmed.
func (s *LedgerStore) CreatePending(ctx context.Context, p *models.PendingTransaction) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_transactions (user_id, external_id, payload, reason) VALUES (?, ?, ?, ?)`,
		p.UserID, p.ExternalID, p.Payload, p.Reason)
	if err != nil {
		return fmt.Errorf("storage: creating pending transaction: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// TransactionByExternalID returns the user's transaction with the given
// external id, or sql.ErrNoRows.
func (s *LedgerStore) TransactionByExternalID(ctx context.Context, userID int64, externalID string) (*models.Transaction, error) {
	var t models.Transaction
	var sourceID sql.NullInt64
	var amount string
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, source_id, external_id, description, amount, currency, date, comments, status FROM transactions WHERE user_id = ? AND external_id = ?`,
		userID, externalID).Scan(&t.ID, &t.UserID, &sourceID, &t.ExternalID,
		&t.Description, &amount, &t.Currency, &date, &t.Comments, &t.Status)
	if err != nil {
		return nil, err
	}
	if sourceID.Valid {
		t.SourceID = &sourceID.Int64
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("storage: parsing stored amount %q: %w", amount, err)
	}
	if date.Valid {
		t.Date = date.Time
	}
	return &t, nil
}

// StockByExternalID returns the user's stock operation with the given
// external id, or sql.ErrNoRows.
func (s *LedgerStore) StockByExternalID(ctx context.Context, userID int64, externalID string) (*models.Stock, error) {
	var st models.Stock
	var transactionID sql.NullInt64
	var quantity, unitPrice string
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, transaction_id, external_id, symbol, bought, quantity, unit_price, date FROM stocks WHERE user_id = ? AND external_id = ?`,
		userID, externalID).Scan(&st.ID, &st.UserID, &transactionID, &st.ExternalID,
		&st.Symbol, &st.Bought, &quantity, &unitPrice, &date)
	if err != nil {
		return nil, err
	}
	if transactionID.Valid {
		st.TransactionID = &transactionID.Int64
	}
	if st.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("storage: parsing stored quantity %q: %w", quantity, err)
	}
	if st.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("storage: parsing stored unit price %q: %w", unitPrice, err)
	}
	if date.Valid {
		st.Date = date.Time
	}
	return &st, nil
}

// PendingByUser lists the user's pending transactions, oldest first.
func (s *LedgerStore) PendingByUser(ctx context.Context, userID int64) ([]models.PendingTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, external_id, payload, reason, created_at FROM pending_transactions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: listing pending transactions: %w", err)
	}
	defer rows.Close()

	var out []models.PendingTransaction
	for rows.Next() {
		var p models.PendingTransaction
		var createdAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.ExternalID, &p.Payload, &p.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scanning pending transaction: %w", err)
		}
		if createdAt.Valid {
			p.CreatedAt = createdAt.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterating pending transactions: %w", err)
	}
	return out, nil
}

// TransactionCount returns the user's confirmed-ledger row count.
func (s *LedgerStore) TransactionCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: counting transactions: %w", err)
	}
	return n, nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
