package certification

import (
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/blobstore"
	"github.com/clinicops/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	cert := api.Group("/certifications", auth.RequireRole(auth.RoleQuality))
	cert.GET("", h.List)
	cert.GET("/:id", h.Get)
	cert.POST("", h.Create)
	cert.PUT("/:id", h.Update)
	cert.DELETE("/:id", h.Delete)
	cert.POST("/:id/activate", h.action(ActionActivate))
	cert.POST("/:id/draft", h.action(ActionDraft))
	cert.POST("/:id/renew", h.Renew)
	cert.PUT("/:id/document", h.UploadDocument)
	cert.GET("/:id/document", h.Document)

	insp := api.Group("/inspections", auth.RequireRole(auth.RoleQuality))
	insp.GET("", h.ListInspections)
	insp.GET("/:id", h.GetInspection)
	insp.POST("", h.CreateInspection)
	insp.PUT("/:id", h.UpdateInspection)
	insp.DELETE("/:id", h.DeleteInspection)
	insp.POST("/:id/start", h.inspectionAction(InspectionStart))
	insp.POST("/:id/complete", h.inspectionAction(InspectionComplete))
	insp.POST("/:id/cancel", h.inspectionAction(InspectionCancel))
	insp.POST("/:id/reset", h.inspectionAction(InspectionReset))
	insp.PUT("/:id/document", h.UploadInspectionDocument)
	insp.GET("/:id/document", h.InspectionDocument)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// upload opens the multipart "file" field.
func upload(c echo.Context) (name, contentType string, content io.ReadCloser, err error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	return file.Filename, file.Header.Get("Content-Type"), src, nil
}

func stream(c echo.Context, rc io.ReadCloser, obj *blobstore.Object) error {
	defer rc.Close()
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+path.Base(obj.Key)+`"`)
	return c.Stream(http.StatusOK, obj.ContentType, rc)
}

// -- Certification --

func (h *Handler) Create(c echo.Context) error {
	cert := Certification{RenewalReminder: true, ReminderDays: DefaultReminderDays}
	if err := c.Bind(&cert); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &cert); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cert)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cert, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var cert Certification
	if err := c.Bind(&cert); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cert.ID = id
	if err := h.svc.Update(c.Request().Context(), &cert); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		State:      State(c.QueryParam("state")),
		Type:       Type(c.QueryParam("type")),
		ActiveOnly: c.QueryParam("active") == "true",
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) action(a Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		cert, err := h.svc.Apply(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, cert)
	}
}

func (h *Handler) Renew(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req RenewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cert, insp, err := h.svc.Renew(c.Request().Context(), id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"certification": cert, "inspection": insp})
}

func (h *Handler) UploadDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	name, contentType, src, err := upload(c)
	if err != nil {
		return err
	}
	defer src.Close()
	cert, err := h.svc.UploadDocument(c.Request().Context(), id, name, contentType, src)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *Handler) Document(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rc, obj, err := h.svc.Document(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return stream(c, rc, obj)
}

// -- Inspection --

func (h *Handler) CreateInspection(c echo.Context) error {
	var i Inspection
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInspection(c.Request().Context(), &i); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) GetInspection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	i, err := h.svc.GetInspection(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) UpdateInspection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var i Inspection
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	i.ID = id
	if err := h.svc.UpdateInspection(c.Request().Context(), &i); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) DeleteInspection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInspection(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListInspections(c echo.Context) error {
	pg := pagination.FromContext(c)
	var certID *uuid.UUID
	if v := c.QueryParam("certification_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid certification_id")
		}
		certID = &id
	}
	items, total, err := h.svc.ListInspections(c.Request().Context(), certID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) inspectionAction(a InspectionAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		i, err := h.svc.ApplyInspection(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, i)
	}
}

func (h *Handler) UploadInspectionDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	name, contentType, src, err := upload(c)
	if err != nil {
		return err
	}
	defer src.Close()
	i, err := h.svc.UploadInspectionDocument(c.Request().Context(), id, name, contentType, src)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) InspectionDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rc, obj, err := h.svc.InspectionDocument(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return stream(c, rc, obj)
}
