package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/upload"
)

type recordApi struct {
	svc     *record.Service
	uploads *upload.Service
}

func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *record.Service, uploads *upload.Service) {
	api := recordApi{svc: svc, uploads: uploads}

	rg := g.Group("/records", jwt)
	rg.GET("", api.query)
	rg.PUT("", api.upsert)
	rg.POST("/paste", api.paste)
	rg.DELETE("", api.destroyByFilter, adminMiddleware())
}

func (api *recordApi) query(ctx echo.Context) error {
	filter := record.QueryFilter{
		SessionID: ctx.QueryParam("session_id"),
		Center:    ctx.QueryParam("center"),
	}
	if att := ctx.QueryParam("attendance"); att != "" {
		parsed, err := record.ParseAttendance(att)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "attendance", Error: err.Error()})
		}
		filter.Attendance = []record.Attendance{parsed}
	}
	if hg := ctx.QueryParam("has_grade"); hg != "" {
		val, err := strconv.ParseBool(hg)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "has_grade", Error: "must be a boolean"})
		}
		filter.HasGrade = &val
	}
	if iss := ctx.QueryParam("issue"); iss != "" {
		val, err := strconv.ParseBool(iss)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "issue", Error: "must be a boolean"})
		}
		filter.Issue = &val
	}

	recs, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering records")
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

// upsert merges a single record; used for manual corrections outside the
// weekly upload flow.
func (api *recordApi) upsert(ctx echo.Context) error {
	var rec record.Record
	if err := ctx.Bind(&rec); err != nil {
		return errors.Wrap(err, "binding to Record")
	}

	rec, err := api.svc.Upsert(ctx.Request().Context(), rec)
	if err != nil {
		if errors.Cause(err) == record.ErrMakeupReasonRequired {
			return core.NewValidationError(err, core.FieldError{Field: "makeup_reason", Error: err.Error()})
		}
		return errors.Wrap(err, "upserting record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// paste ingests rows copied straight out of a spreadsheet, one student ID per
// line with an optional tab-separated value column.
func (api *recordApi) paste(ctx echo.Context) error {
	var data PasteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasteRequest")
	}
	kind, err := upload.ParseKind(data.Kind)
	if err != nil {
		return err
	}

	sum, err := api.uploads.ProcessPaste(ctx.Request().Context(), data.Data, kind, data.SessionID, data.Center)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UploadResponse{
		Status:  "success",
		Message: fmt.Sprintf("تمت معالجة %d سجلًا بنجاح", sum.Processed),
		Details: sum,
	})
}

// PasteRequest carries tab-separated rows pasted from Excel or Sheets.
type PasteRequest struct {
	SessionID string `json:"session_id"`
	Center    string `json:"center"`
	Kind      string `json:"kind"`
	Data      string `json:"data"`
}

func (api *recordApi) destroyByFilter(ctx echo.Context) error {
	sessionID := ctx.QueryParam("session_id")
	center := ctx.QueryParam("center")
	if sessionID == "" && center == "" {
		return core.NewPreconditionError("session_id or center is required")
	}

	deleted, err := api.svc.DeleteByFilter(ctx.Request().Context(), sessionID, center)
	if err != nil {
		return errors.Wrap(err, "deleting records")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}
