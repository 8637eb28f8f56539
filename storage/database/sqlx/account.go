package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core/account"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

type accountRow struct {
	ID           string    `db:"id"`
	Nom          string    `db:"nom"`
	Prenom       string    `db:"prenom"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row accountRow) toAccount() account.Account {
	return account.Account{
		ID:           row.ID,
		Nom:          row.Nom,
		Prenom:       row.Prenom,
		Email:        row.Email,
		Role:         row.Role,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
	if err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO accounts (id, nom, prenom, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acct.ID, acct.Nom, acct.Prenom, acct.Email, acct.Role, acct.PasswordHash,
		acct.CreatedAt.UTC(), acct.UpdatedAt.UTC(),
	)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, nom, prenom, email, role, password_hash, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	)
	if err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by ID")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, nom, prenom, email, role, password_hash, created_at, updated_at
		FROM accounts WHERE email = $1`, email,
	)
	if err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by email")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) SetAccountPassword(ctx context.Context, id string, hash []byte) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "updating account password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrNotFound
	}
	return nil
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo *accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
