package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
	"github.com/trezcool/candidature/core/candidature"
)

type accountApi struct {
	conf     *core.Config
	svc      *account.Service
	candSvc  *candidature.Service
	validate *validator.Validate
}

func registerAccountAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		conf:     deps.Conf,
		svc:      deps.AccountSvc,
		candSvc:  deps.CandidatureSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	app.POST("/register", api.register)
	app.POST("/login", api.login)

	// authed endpoints
	ag := app.Group("", jwt)
	ag.PATCH("/change-password", api.changePassword)
	ag.POST("/admin/create-admin", api.createAdmin, adminMiddleware())
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	acct, err := api.svc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	acct, err := authenticate(reqCtx, data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetAccountClaims(acct, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	var hasCandidature bool
	if acct.IsCandidate() {
		if hasCandidature, err = api.candSvc.HasCandidature(reqCtx, acct.ID); err != nil {
			return errors.Wrap(err, "checking existing candidature")
		}
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:          token,
		Role:           acct.Role,
		HasCandidature: hasCandidature,
	})
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data account.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), sess, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *accountApi) createAdmin(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	acct, err := api.svc.CreateAdmin(reqCtx, sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, acct)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"mot_de_passe" validate:"required"`
	}

	LoginResponse struct {
		Token          string `json:"token"`
		Role           string `json:"role"`
		HasCandidature bool   `json:"hasCandidature"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
