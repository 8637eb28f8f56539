package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/candidature/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, acct := range repo.db.accounts {
		if acct.Email == email {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acct.ID = uuid.New().String()
	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acct, ok := repo.db.accounts[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, acct := range repo.db.accounts {
		if acct.Email == email {
			return *acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) SetAccountPassword(ctx context.Context, id string, hash []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acct, ok := repo.db.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	acct.PasswordHash = hash
	return nil
}
