package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/candidature"
)

const (
	cvFormField   = "cv"
	cvContentType = "application/pdf"
	cvURLPrefix   = "/cv/"
)

type candidatureApi struct {
	conf      *core.Config
	svc       *candidature.Service
	fileStore core.FileStore
	validate  *validator.Validate
	logger    core.Logger
}

func registerCandidatureAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := candidatureApi{
		conf:      deps.Conf,
		svc:       deps.CandidatureSvc,
		fileStore: deps.FileStore,
		validate:  deps.Validate,
		logger:    deps.Logger,
	}

	ag := app.Group("", jwt)

	// candidate endpoints
	ag.POST("/candidature", api.submit, candidateMiddleware())
	ag.GET("/mes-candidatures", api.mine, candidateMiddleware())
	ag.DELETE("/candidatures/:id", api.destroy, candidateMiddleware())

	// reviewer endpoints
	ag.PATCH("/candidatures/:id/status", api.updateStatus, adminMiddleware())
	ag.PATCH("/candidatures/:id/note", api.updateNote, adminMiddleware())
	ag.POST("/candidatures/:id/remarques", api.addRemark, adminMiddleware())
	ag.GET("/admin/candidatures", api.query, adminMiddleware())

	// CV download; access is checked per role
	ag.GET("/cv/:name", api.downloadCV)
}

// Handlers

func (api *candidatureApi) submit(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile(cvFormField)
	if err != nil {
		return core.NewValidationError(
			errors.New("CV is required"),
			core.FieldError{Field: cvFormField, Error: "a CV file is required"},
		)
	}
	if fileHdr.Size > api.conf.Storage.MaxCVSize {
		return core.NewValidationError(
			errors.New("CV too large"),
			core.FieldError{Field: cvFormField, Error: "the CV file is too large"},
		)
	}
	contentType := fileHdr.Header.Get(echo.HeaderContentType)
	if contentType != cvContentType && !strings.HasSuffix(strings.ToLower(fileHdr.Filename), ".pdf") {
		return core.NewValidationError(
			errors.New("CV must be a PDF"),
			core.FieldError{Field: cvFormField, Error: "the CV must be a PDF document"},
		)
	}

	cvName := uuid.New().String() + ".pdf"
	data := candidature.NewCandidature{
		Telephone:           ctx.FormValue("telephone"),
		Formation:           ctx.FormValue("formation"),
		DateNaissance:       ctx.FormValue("date_naissance"),
		StatutProfessionnel: ctx.FormValue("statut_professionnel"),
		Motivation:          ctx.FormValue("motivation"),
		CVRef:               cvURLPrefix + cvName,
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	src, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded CV")
	}
	defer func() { _ = src.Close() }()

	reqCtx := ctx.Request().Context()
	if err = api.fileStore.Save(reqCtx, cvName, src); err != nil {
		return errors.Wrap(err, "saving CV")
	}

	cand, err := api.svc.Submit(reqCtx, sess, data)
	if err != nil {
		// the submission failed; drop the orphaned CV
		if delErr := api.fileStore.Delete(reqCtx, cvName); delErr != nil {
			api.logger.Warn("deleting orphaned CV: "+cvName, delErr)
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, cand)
}

func (api *candidatureApi) mine(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	cands, err := api.svc.GetOwn(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cands)
}

func (api *candidatureApi) destroy(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	// look the candidature up first so the CV can be cleaned up after
	cands, err := api.svc.GetOwn(reqCtx, sess)
	if err != nil {
		return err
	}
	var cvRef string
	for _, cand := range cands {
		if cand.ID == ctx.Param("id") {
			cvRef = cand.CVRef
		}
	}

	if err = api.svc.DeleteOwn(reqCtx, sess, ctx.Param("id")); err != nil {
		return err
	}

	// best effort; the candidature is already gone
	if name := strings.TrimPrefix(cvRef, cvURLPrefix); name != "" {
		if delErr := api.fileStore.Delete(reqCtx, name); delErr != nil {
			api.logger.Warn("deleting CV: "+name, delErr)
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *candidatureApi) updateStatus(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data candidature.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}

	cand, err := api.svc.ChangeStatus(ctx.Request().Context(), sess, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *candidatureApi) updateNote(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data candidature.RatingUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RatingUpdate")
	}

	cand, err := api.svc.Rate(ctx.Request().Context(), sess, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *candidatureApi) addRemark(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data candidature.NewRemarque
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRemarque")
	}

	rem, err := api.svc.AddRemark(ctx.Request().Context(), sess, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rem)
}

func (api *candidatureApi) query(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	filter := new(candidature.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, paginate([]candidature.Candidature{}, 1))
	}
	params := new(ListParams)
	params.Bind(ctx)

	cands, err := api.svc.Query(ctx.Request().Context(), sess, *filter)
	if err != nil {
		return err
	}
	if cands == nil {
		cands = []candidature.Candidature{}
	}
	sortByNote(cands, params.NoteOrder)
	return ctx.JSON(http.StatusOK, paginate(cands, params.Page))
}

func (api *candidatureApi) downloadCV(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	name := ctx.Param("name")
	reqCtx := ctx.Request().Context()

	// candidates may only fetch their own CV
	if !sess.IsAdmin() {
		cands, err := api.svc.GetOwn(reqCtx, sess)
		if err != nil {
			return err
		}
		var owned bool
		for _, cand := range cands {
			if cand.CVRef == cvURLPrefix+name {
				owned = true
			}
		}
		if !owned {
			return errHttpNotFound
		}
	}

	f, err := api.fileStore.Open(reqCtx, name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return ctx.Stream(http.StatusOK, cvContentType, f)
}
