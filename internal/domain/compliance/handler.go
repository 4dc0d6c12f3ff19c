package compliance

import (
	"net/http"

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
	g := api.Group("/compliance", auth.RequireRole(auth.RoleQuality))

	g.GET("/regulations", h.ListRegulations)
	g.GET("/regulations/:id", h.GetRegulation)
	g.POST("/regulations", h.CreateRegulation)
	g.PUT("/regulations/:id", h.UpdateRegulation)
	g.DELETE("/regulations/:id", h.DeleteRegulation)

	g.GET("/assessments", h.ListAssessments)
	g.GET("/assessments/:id", h.GetAssessment)
	g.POST("/assessments", h.CreateAssessment)
	g.PUT("/assessments/:id", h.UpdateAssessment)
	g.DELETE("/assessments/:id", h.DeleteAssessment)
	for _, a := range []Action{ActionStart, ActionCompliant, ActionNonComp, ActionPartly, ActionReset} {
		g.POST("/assessments/:id/"+string(a), h.assessmentAction(a))
	}

	g.GET("/actions/:id", h.GetAction)
	g.POST("/actions", h.CreateAction)
	g.PUT("/actions/:id", h.UpdateAction)
	g.DELETE("/actions/:id", h.DeleteAction)
	for _, s := range []Step{StepStart, StepDone, StepCancel, StepReset} {
		g.POST("/actions/:id/"+string(s), h.actionStep(s))
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Regulation --

func (h *Handler) CreateRegulation(c echo.Context) error {
	var r Regulation
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRegulation(c.Request().Context(), &r); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRegulation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetRegulation(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateRegulation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var r Regulation
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateRegulation(c.Request().Context(), &r); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteRegulation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRegulation(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListRegulations(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRegulations(c.Request().Context(), c.QueryParam("active") == "true", pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Assessment --

func (h *Handler) CreateAssessment(c echo.Context) error {
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAssessment(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAssessment(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAssessment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAssessment(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAssessment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAssessment(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	pg := pagination.FromContext(c)
	var regulationID *uuid.UUID
	if v := c.QueryParam("regulation_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid regulation_id")
		}
		regulationID = &id
	}
	items, total, err := h.svc.ListAssessments(c.Request().Context(), regulationID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) assessmentAction(a Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		out, err := h.svc.ApplyAssessment(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

// -- Corrective action --

func (h *Handler) CreateAction(c echo.Context) error {
	var a CorrectiveAction
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAction(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAction(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a CorrectiveAction
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAction(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAction(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) actionStep(s Step) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		out, err := h.svc.ApplyAction(c.Request().Context(), id, s)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, out)
	}
}
