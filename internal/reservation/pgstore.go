package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foodable/foodable-api/internal/orders"
)

// PgxPool is the slice of pgxpool.Pool the store needs; narrow so tests can
// substitute a mock pool.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore backs the engine with a Postgres transaction per atomic unit.
type PostgresStore struct {
	DB PgxPool
}

func NewPostgresStore(db PgxPool) *PostgresStore { return &PostgresStore{DB: db} }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	t, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = t.Rollback(ctx) }()

	if err := fn(&pgTx{tx: t}); err != nil {
		return err // rollback via defer
	}
	if err := t.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// The WHERE qty > 0 guard makes check and decrement one indivisible statement;
// row-level locking in Postgres serializes concurrent callers on the same offer.
func (t *pgTx) DecrementIfAvailable(ctx context.Context, offerID string) (bool, error) {
	ct, err := t.tx.Exec(ctx,
		`UPDATE offers SET qty = qty - 1 WHERE id = $1 AND qty > 0`, offerID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) OfferExists(ctx context.Context, offerID string) (bool, error) {
	var one int
	err := t.tx.QueryRow(ctx, `SELECT 1 FROM offers WHERE id = $1`, offerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *pgTx) AppendOrder(ctx context.Context, offerID, userID string) (string, error) {
	id := uuid.NewString()
	var uid any
	if userID != "" {
		uid = userID
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders(id, offer_id, user_id, status) VALUES ($1, $2, $3, $4)`,
		id, offerID, uid, orders.StatusReserved)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}
