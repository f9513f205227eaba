package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
)

type studentApi struct {
	svc      *student.Service
	records  *record.Service
	sessions *session.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service, records *record.Service, sessions *session.Service) {
	api := studentApi{svc: svc, records: records, sessions: sessions}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/search", api.search)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	var students []student.Student
	var err error
	if center := ctx.QueryParam("center"); center != "" {
		students, err = api.svc.FilterByCenter(ctx.Request().Context(), center)
	} else {
		students, err = api.svc.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) search(ctx echo.Context) error {
	students, err := api.svc.Search(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "searching students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// retrieve returns the student's profile: the student joined with their
// full attendance and grade history.
func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student by ID")
	}

	recs, err := api.records.QueryByStudent(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "listing student records")
	}
	sessions, err := api.sessions.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	byID := make(map[string]session.Session, len(sessions))
	for _, sess := range sessions {
		byID[sess.ID] = sess
	}

	history := make([]StudentHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		history = append(history, StudentHistoryEntry{Record: rec, Session: byID[rec.SessionID]})
	}
	return ctx.JSON(http.StatusOK, StudentProfileResponse{Student: std, Records: history})
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	// StudentHistoryEntry pairs one record with the session it belongs to.
	StudentHistoryEntry struct {
		Record  record.Record   `json:"record"`
		Session session.Session `json:"session"`
	}

	StudentProfileResponse struct {
		Student student.Student       `json:"student"`
		Records []StudentHistoryEntry `json:"records"`
	}
)
