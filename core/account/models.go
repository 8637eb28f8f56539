package account

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/candidature/core"
)

type Account struct {
	ID           string    `json:"id"`
	Nom          string    `json:"nom"`
	Prenom       string    `json:"prenom"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool {
	return a.Role == core.RoleAdmin
}

func (a *Account) IsCandidate() bool {
	return a.Role == core.RoleCandidate
}

func (a *Account) FullName() string {
	return a.Prenom + " " + a.Nom
}

// Session returns the service call session for this account.
func (a *Account) Session() core.Session {
	return core.Session{AccountID: a.ID, Role: a.Role}
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Nom      string `json:"nom" validate:"required"`
	Prenom   string `json:"prenom" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"mot_de_passe" validate:"required"`
}

func (na *NewAccount) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	na.Nom = core.CleanString(na.Nom)
	na.Prenom = core.CleanString(na.Prenom)
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, na.Email)
}

// ChangePassword defines the information needed to change an Account's password.
type ChangePassword struct {
	OldPassword string `json:"ancien_mot_de_passe" validate:"required"`
	NewPassword string `json:"nouveau_mot_de_passe" validate:"required"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}
