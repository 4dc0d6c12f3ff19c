package payroll

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
	g := api.Group("/payroll", auth.RequireRole(auth.RoleHR, auth.RoleAccountant))

	g.GET("/levels", h.ListLevels)
	g.POST("/levels", h.CreateLevel)
	g.GET("/levels/:id", h.GetLevel)
	g.PUT("/levels/:id", h.UpdateLevel)
	g.DELETE("/levels/:id", h.DeleteLevel)

	g.GET("/allowances", h.ListAllowances)
	g.POST("/allowances", h.CreateAllowance)
	g.PUT("/allowances/:id", h.UpdateAllowance)
	g.DELETE("/allowances/:id", h.DeleteAllowance)

	g.GET("/bonuses", h.ListBonuses)
	g.POST("/bonuses", h.CreateBonus)
	g.PUT("/bonuses/:id", h.UpdateBonus)
	g.DELETE("/bonuses/:id", h.DeleteBonus)

	g.GET("/deductions", h.ListDeductions)
	g.POST("/deductions", h.CreateDeduction)
	g.PUT("/deductions/:id", h.UpdateDeduction)
	g.DELETE("/deductions/:id", h.DeleteDeduction)

	g.GET("/sheets", h.ListSheets)
	g.POST("/sheets", h.CreateSheet)
	g.GET("/sheets/:id", h.GetSheet)
	g.DELETE("/sheets/:id", h.DeleteSheet)
	g.POST("/sheets/:id/generate", h.GenerateSalaries)
	g.GET("/sheets/:id/salaries", h.ListSalaries)

	g.GET("/salaries/:id", h.GetSalary)
	g.PUT("/salaries/:id", h.UpdateSalary)
	g.DELETE("/salaries/:id", h.DeleteSalary)
	g.POST("/salaries/:id/confirm", h.salaryAction(ActionConfirm))
	g.POST("/salaries/:id/pay", h.salaryAction(ActionPay))

	g.GET("/staff/:id/latest", h.LatestForStaff)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// -- Qualification levels --

func (h *Handler) CreateLevel(c echo.Context) error {
	var l QualificationLevel
	if err := bind(c, &l); err != nil {
		return err
	}
	if err := h.svc.CreateLevel(c.Request().Context(), &l); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLevel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.GetLevel(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) UpdateLevel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var l QualificationLevel
	if err := bind(c, &l); err != nil {
		return err
	}
	l.ID = id
	if err := h.svc.UpdateLevel(c.Request().Context(), &l); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLevel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLevel(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLevels(c echo.Context) error {
	items, err := h.svc.ListLevels(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Allowances --

func (h *Handler) CreateAllowance(c echo.Context) error {
	var a Allowance
	if err := bind(c, &a); err != nil {
		return err
	}
	if err := h.svc.CreateAllowance(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAllowance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Allowance
	if err := bind(c, &a); err != nil {
		return err
	}
	a.ID = id
	if err := h.svc.UpdateAllowance(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAllowance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAllowance(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAllowances(c echo.Context) error {
	items, err := h.svc.ListAllowances(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Bonuses --

func (h *Handler) CreateBonus(c echo.Context) error {
	var b Bonus
	if err := bind(c, &b); err != nil {
		return err
	}
	if err := h.svc.CreateBonus(c.Request().Context(), &b); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBonus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var b Bonus
	if err := bind(c, &b); err != nil {
		return err
	}
	b.ID = id
	if err := h.svc.UpdateBonus(c.Request().Context(), &b); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBonus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBonus(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBonuses(c echo.Context) error {
	items, err := h.svc.ListBonuses(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Deductions --

func (h *Handler) CreateDeduction(c echo.Context) error {
	var d Deduction
	if err := bind(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDeduction(c.Request().Context(), &d); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDeduction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var d Deduction
	if err := bind(c, &d); err != nil {
		return err
	}
	d.ID = id
	if err := h.svc.UpdateDeduction(c.Request().Context(), &d); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDeduction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDeduction(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDeductions(c echo.Context) error {
	items, err := h.svc.ListDeductions(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Sheets --

func (h *Handler) CreateSheet(c echo.Context) error {
	var sh Sheet
	if err := bind(c, &sh); err != nil {
		return err
	}
	if err := h.svc.CreateSheet(c.Request().Context(), &sh); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, sh)
}

func (h *Handler) GetSheet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sh, err := h.svc.GetSheet(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sh)
}

func (h *Handler) ListSheets(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSheets(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteSheet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSheet(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GenerateSalaries(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GenerateSalaries(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"created": n})
}

// -- Salaries --

func (h *Handler) ListSalaries(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListSalaries(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetSalary(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sal, err := h.svc.GetSalary(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sal)
}

type salaryRequest struct {
	AllowanceIDs []uuid.UUID `json:"allowance_ids"`
	BonusIDs     []uuid.UUID `json:"bonus_ids"`
	DeductionIDs []uuid.UUID `json:"deduction_ids"`
}

func (h *Handler) UpdateSalary(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req salaryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sal := &Salary{ID: id, AllowanceIDs: req.AllowanceIDs, BonusIDs: req.BonusIDs, DeductionIDs: req.DeductionIDs}
	if err := h.svc.UpdateSalary(c.Request().Context(), sal); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sal)
}

func (h *Handler) DeleteSalary(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSalary(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) salaryAction(action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		sal, err := h.svc.ApplySalary(c.Request().Context(), id, action)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, sal)
	}
}

func (h *Handler) LatestForStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	latest, err := h.svc.LatestForStaff(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, latest)
}
