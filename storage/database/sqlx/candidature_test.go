package sqlxrepos

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/candidature/core/candidature"
)

func Test_candidatureRepository_CreateCandidature_duplicate(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewCandidatureRepository(db)

	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := repo.CreateCandidature(ctx, candidature.Candidature{CandidateID: "acct-1"})
	assert.Equal(t, candidature.ErrDuplicateCandidature, errors.Cause(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_candidatureRepository_CandidateHasCandidature(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewCandidatureRepository(db)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM applications WHERE candidate_id = \$1\)`).
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := repo.CandidateHasCandidature(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_candidatureRepository_UpdateStatus_notFound(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewCandidatureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET statut = \$2, motif_refus = \$3 WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(ctx, "ghost", candidature.StatutAcceptee, "", candidature.HistoryEntry{})
	assert.Equal(t, candidature.ErrNotFound, errors.Cause(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

// Test_candidatureRepository_UpdateNote_atomic checks that the note change and
// its history entry share one transaction.
func Test_candidatureRepository_UpdateNote_atomic(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewCandidatureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET note = \$2 WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO history_entries`).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.UpdateNote(ctx, "cand-1", 3, candidature.HistoryEntry{CandidatureID: "cand-1"})
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_candidatureRepository_DeleteCandidature(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewCandidatureRepository(db)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM applications WHERE id = \$1`).
			WithArgs("cand-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteCandidature(ctx, "cand-1"))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM applications WHERE id = \$1`).
			WithArgs("ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteCandidature(ctx, "ghost")
		assert.Equal(t, candidature.ErrNotFound, errors.Cause(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
