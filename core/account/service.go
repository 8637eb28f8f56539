package account

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		SetAccountPassword(ctx context.Context, id string, hash []byte) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckEmailUniqueness maps a duplicate email to a field-level ValidationError.
func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) create(ctx context.Context, na NewAccount, role string) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Nom:       na.Nom,
		Prenom:    na.Prenom,
		Email:     na.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAccount(ctx, acct)
}

// Register creates a candidate Account.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	return svc.create(ctx, na, core.RoleCandidate)
}

// CreateAdmin creates an admin Account; the caller must be an admin.
func (svc *Service) CreateAdmin(ctx context.Context, sess core.Session, na NewAccount) (Account, error) {
	if err := sess.RequireRole(core.RoleAdmin); err != nil {
		return Account{}, err
	}
	return svc.create(ctx, na, core.RoleAdmin)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

// ChangePassword sets a new password after verifying the old one.
func (svc *Service) ChangePassword(ctx context.Context, sess core.Session, cp ChangePassword) error {
	if sess.IsZero() {
		return core.ErrUnauthorized
	}
	acct, err := svc.repo.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		return errors.Wrap(err, "finding account by ID")
	}
	if err := acct.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(
			errors.New("invalid credentials"),
			core.FieldError{Field: "ancien_mot_de_passe", Error: "invalid password"},
		)
	}
	if err := acct.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetAccountPassword(ctx, acct.ID, acct.PasswordHash)
}
