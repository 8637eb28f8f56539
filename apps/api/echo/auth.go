package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
)

const claimsContextKey = "accountToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role   string `json:"role,omitempty"`
	Nom    string `json:"nom,omitempty"`
	Prenom string `json:"prenom,omitempty"`
	Email  string `json:"email,omitempty"`
}

func newJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(Claims),
	})
}

func GetAccountClaims(acct account.Account, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   acct.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:   acct.Role,
		Nom:    acct.Nom,
		Prenom: acct.Prenom,
		Email:  acct.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func authenticate(ctx context.Context, email, pwd string, svc *account.Service) (account.Account, error) {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, errAuthenticationFailed
		}
		return account.Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return account.Account{}, errAuthenticationFailed
	}
	return acct, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errHttpUnauthorized
}

// getContextSession builds the service call session from the verified claims.
func getContextSession(ctx echo.Context) (core.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{AccountID: claims.Subject, Role: claims.Role}, nil
}
