package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/candidature/core/account"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("newMockDB() failed: %v", err)
	}
	db := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func Test_accountRepository_CheckEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	query := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`)

	t.Run("email taken", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("alice@test.fr").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.CheckEmailUniqueness(ctx, "alice@test.fr")
		assert.Equal(t, account.ErrEmailExists, errors.Cause(err))
	})

	t.Run("email free", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("bob@test.fr").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "bob@test.fr"))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_accountRepository_GetAccountByID(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	cols := []string{"id", "nom", "prenom", "email", "role", "password_hash", "created_at", "updated_at"}
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1`).
			WithArgs("acct-1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("acct-1", "Durand", "Alice", "alice@test.fr", "candidate", []byte("hash"), now, now))

		acct, err := repo.GetAccountByID(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "alice@test.fr", acct.Email)
		assert.True(t, acct.IsCandidate())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.GetAccountByID(ctx, "ghost")
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_accountRepository_SetAccountPassword(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	t.Run("updated", func(t *testing.T) {
		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2, updated_at = \$3 WHERE id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetAccountPassword(ctx, "acct-1", []byte("hash")))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2, updated_at = \$3 WHERE id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetAccountPassword(ctx, "ghost", []byte("hash"))
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
