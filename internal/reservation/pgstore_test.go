package reservation

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

const (
	decrementSQL = `UPDATE offers SET qty = qty - 1 WHERE id = $1 AND qty > 0`
	existsSQL    = `SELECT 1 FROM offers WHERE id = $1`
	insertSQL    = `INSERT INTO orders(id, offer_id, user_id, status) VALUES ($1, $2, $3, $4)`
)

func newMockEngine(t *testing.T) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Engine{Store: NewPostgresStore(mock)}, mock
}

func TestPostgresStoreReserveCommits(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(pgxmock.AnyArg(), "offer-1", "user-1", "reserved").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	orderID, err := eng.ReserveOne(context.Background(), "offer-1", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSoldOutRollsBack(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(existsSQL)).
		WithArgs("offer-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := eng.ReserveOne(context.Background(), "offer-1", "user-1")
	requireKind(t, err, KindSoldOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreNotFoundRollsBack(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(existsSQL)).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	_, err := eng.ReserveOne(context.Background(), "ghost", "user-1")
	requireKind(t, err, KindNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCheckoutUsesOneTransaction(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
			WithArgs("offer-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
			WithArgs(pgxmock.AnyArg(), "offer-1", "user-1", "reserved").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	ids, err := eng.Checkout(context.Background(), []Item{{OfferID: "offer-1", Qty: 2}}, "user-1")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCheckoutFailureRollsBackEarlierUnits(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	// offer-a unit succeeds inside the batch
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(pgxmock.AnyArg(), "offer-a", "user-1", "reserved").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// offer-b is short -> whole batch rolls back
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-b").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(existsSQL)).
		WithArgs("offer-b").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	ids, err := eng.Checkout(context.Background(), []Item{
		{OfferID: "offer-a", Qty: 1},
		{OfferID: "offer-b", Qty: 1},
	}, "user-1")
	rerr := requireKind(t, err, KindInsufficientQty)
	require.Equal(t, "offer-b", rerr.OfferID)
	require.Nil(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertErrorRollsBack(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(pgxmock.AnyArg(), "offer-1", "user-1", "reserved").
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := eng.ReserveOne(context.Background(), "offer-1", "user-1")
	require.Error(t, err)
	var rerr *Error
	require.False(t, errors.As(err, &rerr), "storage faults must not map to a client error kind")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAnonymousOrderHasNullUser(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs("offer-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(pgxmock.AnyArg(), "offer-1", nil, "reserved").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err := eng.ReserveOne(context.Background(), "offer-1", "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
