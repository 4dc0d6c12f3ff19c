package feedback

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	fb := api.Group("/feedback", auth.RequireRole(auth.RoleQuality, auth.RoleReceptionist))
	fb.GET("", h.ListFeedback)
	fb.GET("/:id", h.GetFeedback)
	fb.POST("", h.CreateFeedback)
	fb.PUT("/:id", h.UpdateFeedback)
	fb.DELETE("/:id", h.DeleteFeedback)
	fb.POST("/:id/note", h.feedbackAction(ActionNote))
	fb.POST("/:id/cancel", h.feedbackAction(ActionCancel))
	fb.POST("/:id/reset", h.feedbackAction(ActionReset))
	fb.POST("/:id/complaint", h.CreateComplaint)

	cmp := api.Group("/complaints", auth.RequireRole(auth.RoleQuality, auth.RoleReceptionist))
	cmp.GET("", h.ListComplaints)
	cmp.GET("/:id", h.GetComplaint)
	cmp.POST("", h.CreateStandaloneComplaint)
	cmp.PUT("/:id", h.UpdateComplaint)
	cmp.DELETE("/:id", h.DeleteComplaint)
	cmp.POST("/:id/progress", h.complaintAction(ComplaintProgress))
	cmp.POST("/:id/resolve", h.complaintAction(ComplaintResolve))
	cmp.POST("/:id/cancel", h.complaintAction(ComplaintCancel))
	cmp.POST("/:id/reset", h.complaintAction(ComplaintReset))

	api.GET("/feedback-dashboard", h.Dashboard, auth.RequireRole(auth.RoleQuality))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func optionalUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func optionalDate(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
	}
	return &t, nil
}

// -- Feedback --

func (h *Handler) CreateFeedback(c echo.Context) error {
	var f Feedback
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateFeedback(c.Request().Context(), &f); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFeedback(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) UpdateFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var f Feedback
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.ID = id
	if err := h.svc.UpdateFeedback(c.Request().Context(), &f); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteFeedback(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListFeedback(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := optionalUUID(c, "patient_id")
	if err != nil {
		return err
	}
	f := ListFilter{PatientID: patientID, Type: Type(c.QueryParam("feedback_type")), State: State(c.QueryParam("state"))}
	items, total, err := h.svc.ListFeedback(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) feedbackAction(action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		f, err := h.svc.ApplyFeedback(c.Request().Context(), id, action)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, f)
	}
}

type complaintRequest struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
}

func (h *Handler) CreateComplaint(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req complaintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cmp, err := h.svc.CreateComplaint(c.Request().Context(), id, req.Category, req.Priority)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cmp)
}

// -- Complaint --

func (h *Handler) CreateStandaloneComplaint(c echo.Context) error {
	var cmp Complaint
	if err := c.Bind(&cmp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStandaloneComplaint(c.Request().Context(), &cmp); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cmp)
}

func (h *Handler) GetComplaint(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cmp, err := h.svc.GetComplaint(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cmp)
}

func (h *Handler) UpdateComplaint(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var cmp Complaint
	if err := c.Bind(&cmp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cmp.ID = id
	if err := h.svc.UpdateComplaint(c.Request().Context(), &cmp); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cmp)
}

func (h *Handler) DeleteComplaint(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteComplaint(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListComplaints(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := optionalUUID(c, "patient_id")
	if err != nil {
		return err
	}
	f := ComplaintFilter{
		PatientID: patientID,
		State:     ComplaintState(c.QueryParam("state")),
		Priority:  Priority(c.QueryParam("priority")),
	}
	items, total, err := h.svc.ListComplaints(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) complaintAction(action ComplaintAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		cmp, err := h.svc.ApplyComplaint(c.Request().Context(), id, action)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, cmp)
	}
}

// -- Dashboard --

func (h *Handler) Dashboard(c echo.Context) error {
	from, err := optionalDate(c, "date_from")
	if err != nil {
		return err
	}
	to, err := optionalDate(c, "date_to")
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), from, to)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
