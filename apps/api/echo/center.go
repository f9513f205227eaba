package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core/center"
)

type centerApi struct {
	svc *center.Service
}

func registerCenterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *center.Service) {
	api := centerApi{svc: svc}

	cg := g.Group("/centers", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *centerApi) create(ctx echo.Context) error {
	var data center.NewCenter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCenter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating center")
	}
	return ctx.JSON(http.StatusCreated, ctr)
}

func (api *centerApi) query(ctx echo.Context) error {
	centers, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying centers")
	}
	if centers == nil {
		centers = []center.Center{}
	}
	return ctx.JSON(http.StatusOK, centers)
}

func (api *centerApi) update(ctx echo.Context) error {
	var data center.NewCenter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCenter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctr, err := api.svc.Rename(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == center.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renaming center")
	}
	return ctx.JSON(http.StatusOK, ctr)
}

func (api *centerApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == center.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting center")
	}
	return ctx.NoContent(http.StatusNoContent)
}
