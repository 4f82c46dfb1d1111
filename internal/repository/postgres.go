package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wishforge/internal/model"
)

// Postgres implements Store on top of a pgx pool. The accounts table is the
// one authoritative balance location; every mutation is a single conditional
// statement or a single transaction, so concurrent callers serialize on the
// row without any application-side read-modify-write.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) ReadBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx,
		`SELECT credits FROM accounts WHERE id = $1`, accountID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (p *Postgres) ApplyDelta(ctx context.Context, accountID string, delta int64) (int64, error) {
	// The predicate lives in the WHERE clause, evaluated by the store at
	// write time. No matching row means either the account is missing or
	// the delta would drive the balance negative; one extra read tells the
	// two apart for the error taxonomy only, never for the mutation.
	var newBalance int64
	err := p.pool.QueryRow(ctx,
		`UPDATE accounts
		    SET credits = credits + $2
		  WHERE id = $1 AND credits + $2 >= 0
		 RETURNING credits`,
		accountID, delta,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, readErr := p.ReadBalance(ctx, accountID); errors.Is(readErr, ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		if isCheckViolation(err) {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("apply delta: %w", err)
	}
	return newBalance, nil
}

func (p *Postgres) CreditPurchase(ctx context.Context, rec model.PurchaseRecord) (int64, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin purchase tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The primary key on session_id is the sole idempotency guard. Zero
	// rows inserted means another reconciliation won the race.
	tag, err := tx.Exec(ctx,
		`INSERT INTO purchases (session_id, account_id, credits_granted, amount_cents, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.AccountID, rec.CreditsGranted, rec.AmountCents, rec.Currency, rec.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrDuplicatePurchase
	}

	var newBalance int64
	err = tx.QueryRow(ctx,
		`UPDATE accounts SET credits = credits + $2 WHERE id = $1 RETURNING credits`,
		rec.AccountID, rec.CreditsGranted,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit purchase tx: %w", err)
	}
	return newBalance, nil
}

func (p *Postgres) EnsureAccount(ctx context.Context, accountID string, starter int64) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO accounts (id, credits) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		accountID, starter,
	)
	if err != nil {
		return false, fmt.Errorf("ensure account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO ledger_entries (entry_id, account_id, delta, reason, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (entry_id) DO NOTHING`,
		entry.EntryID, entry.AccountID, entry.Delta, entry.Reason, entry.Reference, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

var _ Store = (*Postgres)(nil)

// 23514 is check_violation: the credits >= 0 CHECK backs up the WHERE
// predicate.
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
