package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/upload"
)

type uploadApi struct {
	svc *upload.Service
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *upload.Service) {
	api := uploadApi{svc: svc}

	ug := g.Group("/uploads", jwt)
	ug.POST("/:kind", api.process)
}

type UploadResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details upload.Summary `json:"details"`
}

// process receives the weekly Excel file and runs it through the
// reconciliation engine. The file is copied to a temp location first; the
// engine deletes it once done.
func (api *uploadApi) process(ctx echo.Context) error {
	kind, err := upload.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "an Excel file is required"})
	}
	path, err := saveUploadedFile(fileHdr.Filename, func(dst io.Writer) error {
		src, err := fileHdr.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "saving uploaded file")
	}

	sum, err := api.svc.ProcessUpload(
		ctx.Request().Context(), path, kind,
		ctx.FormValue("session_id"), ctx.FormValue("center"),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UploadResponse{
		Status:  "success",
		Message: successMessage(kind, sum),
		Details: sum,
	})
}

// successMessage is user-facing and therefore in Arabic, unlike the
// engine's own diagnostic Summary.Message.
func successMessage(kind upload.Kind, sum upload.Summary) string {
	if kind == upload.KindStudents {
		return fmt.Sprintf("تم بنجاح! إضافة %d طالبًا جديدًا وتحديث بيانات %d طلاب", sum.Created, sum.Updated)
	}
	return fmt.Sprintf("تم معالجة %d سجل بنجاح", sum.Processed)
}

func saveUploadedFile(name string, copyTo func(io.Writer) error) (string, error) {
	path := filepath.Join(core.Conf.UploadDir, uuid.NewString()+filepath.Ext(name))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if err := copyTo(dst); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
