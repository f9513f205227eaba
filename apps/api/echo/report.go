package echoapi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mutabaa-app/mutabaa/core/report"
	"github.com/mutabaa-app/mutabaa/core/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportApi struct {
	svc      *report.Service
	sessions *session.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service, sessions *session.Service) {
	api := reportApi{svc: svc, sessions: sessions}

	rg := g.Group("/reports", jwt)
	rg.GET("/center/:name/export", api.exportCenter)
	rg.GET("/:kind", api.query)
	rg.GET("/:kind/export", api.export)
}

func (api *reportApi) query(ctx echo.Context) error {
	kind, err := report.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	entries, err := api.svc.Query(ctx.Request().Context(), kind, report.Filter{
		SessionID: ctx.QueryParam("session_id"),
		Center:    ctx.QueryParam("center"),
	})
	if err != nil {
		return errors.Wrap(err, "querying report")
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *reportApi) export(ctx echo.Context) error {
	kind, err := report.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	f, filename, err := api.svc.Export(ctx.Request().Context(), kind, report.Filter{
		SessionID: ctx.QueryParam("session_id"),
		Center:    ctx.QueryParam("center"),
	})
	if err != nil {
		if errors.Cause(err) == report.ErrNoData {
			return errHttpNotFound
		}
		return errors.Wrap(err, "exporting report")
	}
	return writeWorkbook(ctx, f, filename)
}

func (api *reportApi) exportCenter(ctx echo.Context) error {
	f, filename, err := api.svc.ExportCenter(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		if errors.Cause(err) == report.ErrNoData {
			return errHttpNotFound
		}
		return errors.Wrap(err, "exporting center roster")
	}
	return writeWorkbook(ctx, f, filename)
}

// writeWorkbook streams the workbook to the client. Filenames are Arabic, so
// Content-Disposition uses the RFC 5987 encoded form.
func writeWorkbook(ctx echo.Context, f *excelize.File, filename string) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, xlsxContentType)
	resp.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	resp.WriteHeader(http.StatusOK)
	return f.Write(resp)
}
