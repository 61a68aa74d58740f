package learned

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgres_RecordSuccess_Upserts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO learned_patterns`).
		WithArgs(pgxmock.AnyArg(), "acme-exchange.io", "spa_exchanger", "wallet", "input[name=wallet]", 1, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordSuccess(context.Background(), "acme-exchange.io", "spa_exchanger", "wallet", "input[name=wallet]")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordFailure_IncrementsFailCount(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO learned_patterns`).
		WithArgs(pgxmock.AnyArg(), "acme-exchange.io", "", "email", "#email", 0, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordFailure(context.Background(), "acme-exchange.io", "", "email", "#email")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BestSelectors(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"selector"}).
		AddRow("input[name=wallet]").
		AddRow(".wallet-input")
	mock.ExpectQuery(`SELECT selector FROM learned_patterns`).
		WithArgs("acme-exchange.io", "wallet", bestSelectorsCap).
		WillReturnRows(rows)

	selectors, err := s.BestSelectors(context.Background(), "acme-exchange.io", "wallet")
	require.NoError(t, err)
	assert.Equal(t, []string{"input[name=wallet]", ".wallet-input"}, selectors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UniversalPatterns_ComputesSmoothedRate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"selector", "sum_success", "sum_fail"}).
		AddRow("input[name=wallet]", 7, 3)
	mock.ExpectQuery(`SELECT selector, SUM\(success_count\), SUM\(fail_count\)`).
		WithArgs("wallet", 0.5, universalPatternsCap).
		WillReturnRows(rows)

	patterns, err := s.UniversalPatterns(context.Background(), "wallet", 0.5)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.InDelta(t, 7.0/11.0, patterns[0].SuccessRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Import_RunsInTransaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO learned_patterns`).
		WithArgs(pgxmock.AnyArg(), "acme-exchange.io", "", "email", "#email", 2, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	err := s.Import(context.Background(), []Pattern{
		{Domain: "acme-exchange.io", FieldName: "email", Selector: "#email", SuccessCount: 2, FailCount: 1, LastUsed: time.Now()},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
