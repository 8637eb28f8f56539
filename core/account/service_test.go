package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
	inmemdb "github.com/trezcool/candidature/storage/database/inmem"
)

func setup(t *testing.T) (*account.Service, account.Repository) {
	t.Helper()
	db := inmemdb.NewDB()
	repo := inmemdb.NewAccountRepository(db)
	return account.NewService(repo), repo
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	acct, err := svc.Register(ctx, account.NewAccount{
		Nom:      "Durand",
		Prenom:   "Alice",
		Email:    "alice@test.fr",
		Password: "s3cr3t-w0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, core.RoleCandidate, acct.Role)
	assert.NotEmpty(t, acct.ID)
	assert.NoError(t, acct.CheckPassword("s3cr3t-w0rd"))
	assert.Error(t, acct.CheckPassword("wrong"))

	t.Run("duplicate email is flagged", func(t *testing.T) {
		err := svc.CheckEmailUniqueness(ctx, "alice@test.fr")
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.Truef(t, ok, "expected *core.ValidationError, got %v", err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "email", vErr.Fields[0].Field)
	})

	t.Run("lookup by email is case-insensitive", func(t *testing.T) {
		got, err := svc.GetByEmail(ctx, " ALICE@test.fr ")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})
}

func TestService_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	newAdmin := account.NewAccount{
		Nom:      "Martin",
		Prenom:   "Bob",
		Email:    "bob@test.fr",
		Password: "s3cr3t-w0rd",
	}

	t.Run("anonymous is rejected", func(t *testing.T) {
		_, err := svc.CreateAdmin(ctx, core.Session{}, newAdmin)
		assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
	})

	t.Run("candidate is rejected", func(t *testing.T) {
		cdt, err := svc.Register(ctx, account.NewAccount{
			Nom: "Durand", Prenom: "Alice", Email: "alice@test.fr", Password: "s3cr3t-w0rd",
		})
		require.NoError(t, err)
		_, err = svc.CreateAdmin(ctx, cdt.Session(), newAdmin)
		assert.Equal(t, core.ErrForbidden, errors.Cause(err))
	})

	t.Run("admin creates admin", func(t *testing.T) {
		boot := core.Session{AccountID: "bootstrap", Role: core.RoleAdmin}
		adm, err := svc.CreateAdmin(ctx, boot, newAdmin)
		require.NoError(t, err)
		assert.Equal(t, core.RoleAdmin, adm.Role)
		assert.True(t, adm.IsAdmin())
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	acct, err := svc.Register(ctx, account.NewAccount{
		Nom: "Durand", Prenom: "Alice", Email: "alice@test.fr", Password: "s3cr3t-w0rd",
	})
	require.NoError(t, err)

	t.Run("anonymous is rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, core.Session{}, account.ChangePassword{
			OldPassword: "s3cr3t-w0rd", NewPassword: "n3w-s3cr3t",
		})
		assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
	})

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, acct.Session(), account.ChangePassword{
			OldPassword: "nope", NewPassword: "n3w-s3cr3t",
		})
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.Truef(t, ok, "expected *core.ValidationError, got %v", err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "ancien_mot_de_passe", vErr.Fields[0].Field)
	})

	t.Run("password is changed", func(t *testing.T) {
		err := svc.ChangePassword(ctx, acct.Session(), account.ChangePassword{
			OldPassword: "s3cr3t-w0rd", NewPassword: "n3w-s3cr3t",
		})
		require.NoError(t, err)

		refreshed, err := repo.GetAccountByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.NoError(t, refreshed.CheckPassword("n3w-s3cr3t"))
		assert.Error(t, refreshed.CheckPassword("s3cr3t-w0rd"))
	})
}
