package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verity/pkg/domain-errors"
)

func TestSQLRunner(t *testing.T) {
	t.Run("commits and exposes the transaction to stores", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = NewSQLRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.True(t, ok)
			_, err := ExecutorFrom(ctx, db).ExecContext(ctx, "UPDATE applications SET status = 'draft'")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = NewSQLRunner(db).RunInTx(context.Background(), func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled context never begins", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = NewSQLRunner(db).RunInTx(ctx, func(context.Context) error { return nil })
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}
