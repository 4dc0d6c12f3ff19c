package staff

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
	read := api.Group("", auth.RequireRole(auth.RoleHR, auth.RoleAccountant, auth.RoleDoctor, auth.RoleNurse, auth.RoleReceptionist))
	read.GET("/staff-types", h.ListTypes)
	read.GET("/staff-types/:id", h.GetType)
	read.GET("/staff", h.List)
	read.GET("/staff/:id", h.Get)

	hr := api.Group("", auth.RequireRole(auth.RoleHR))
	hr.POST("/staff-types", h.CreateType)
	hr.PUT("/staff-types/:id", h.UpdateType)
	hr.DELETE("/staff-types/:id", h.DeleteType)
	hr.POST("/staff", h.Create)
	hr.PUT("/staff/:id", h.Update)
	hr.DELETE("/staff/:id", h.Delete)
	hr.GET("/staff/:id/attendance", h.ListAttendance)
	hr.POST("/attendance", h.RecordAttendance)
	hr.PUT("/attendance/:id", h.UpdateAttendance)
	hr.DELETE("/attendance/:id", h.DeleteAttendance)
	hr.GET("/staff/:id/performance", h.ListPerformance)
	hr.POST("/performance", h.CreatePerformance)
	hr.GET("/performance/:id", h.GetPerformance)
	hr.POST("/performance/:id/confirm", h.performanceAction("confirm"))
	hr.POST("/performance/:id/approve", h.performanceAction("approve"))
	hr.DELETE("/performance/:id", h.DeletePerformance)

	// any authenticated staff member may punch the clock
	api.POST("/staff/:id/check", h.CheckInOut)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- StaffType --

func (h *Handler) CreateType(c echo.Context) error {
	var t StaffType
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateType(c.Request().Context(), &t); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetType(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetType(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTypes(c echo.Context) error {
	items, err := h.svc.ListTypes(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateType(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var t StaffType
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateType(c.Request().Context(), &t); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteType(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteType(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Staff --

type staffView struct {
	*Staff
	QualificationRank int `json:"qualification_rank"`
}

func (h *Handler) Create(c echo.Context) error {
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &st); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, staffView{&st, st.Rank()})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	st, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, staffView{st, st.Rank()})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	views := make([]staffView, 0, len(items))
	for _, st := range items {
		views = append(views, staffView{st, st.Rank()})
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st.ID = id
	if err := h.svc.Update(c.Request().Context(), &st); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, staffView{&st, st.Rank()})
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

// -- Attendance --

func (h *Handler) CheckInOut(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.CheckInOut(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RecordAttendance(c echo.Context) error {
	var a Attendance
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RecordAttendance(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAttendance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Attendance
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAttendance(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAttendance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAttendance(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAttendance accepts ?from= and ?to= as YYYY-MM-DD, both inclusive,
// defaulting to the current month.
func (h *Handler) ListAttendance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	now := h.svc.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if v := c.QueryParam("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		to = to.AddDate(0, 0, 1)
	}
	items, err := h.svc.ListAttendance(c.Request().Context(), id, from, to)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Performance --

func (h *Handler) CreatePerformance(c echo.Context) error {
	var p Performance
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePerformance(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPerformance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPerformance(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPerformance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPerformance(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) performanceAction(action string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		p, err := h.svc.ApplyPerformance(c.Request().Context(), id, action)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) DeletePerformance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePerformance(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
