package billing

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
	read := api.Group("", auth.RequireRole(auth.RoleAccountant, auth.RoleReceptionist, auth.RoleDoctor))
	read.GET("/services", h.ListServiceItems)
	read.GET("/services/:id", h.GetServiceItem)

	catalog := api.Group("/services", auth.RequireRole(auth.RoleAccountant))
	catalog.POST("", h.CreateServiceItem)
	catalog.PUT("/:id", h.UpdateServiceItem)
	catalog.DELETE("/:id", h.DeleteServiceItem)

	inv := api.Group("/invoices", auth.RequireRole(auth.RoleAccountant, auth.RoleReceptionist))
	inv.GET("", h.ListInvoices)
	inv.GET("/:id", h.GetInvoice)
	inv.POST("", h.CreateInvoice)
	inv.PUT("/:id", h.UpdateInvoice)
	inv.DELETE("/:id", h.DeleteInvoice)
	inv.POST("/from-prescription/:id", h.FromPrescription)
	inv.POST("/:id/confirm", h.action(ActionConfirm))
	inv.POST("/:id/pay", h.action(ActionPay))
	inv.POST("/:id/cancel", h.action(ActionCancel))
	inv.POST("/:id/reset", h.action(ActionReset))

	claims := api.Group("/insurance-claims", auth.RequireRole(auth.RoleAccountant))
	claims.GET("", h.ListClaims)
	claims.GET("/:id", h.GetClaim)
	claims.POST("", h.CreateClaim)
	claims.DELETE("/:id", h.DeleteClaim)
	claims.POST("/:id/confirm", h.claimAction(ClaimConfirm))
	claims.POST("/:id/pay", h.claimAction(ClaimPay))
	claims.POST("/:id/cancel", h.claimAction(ClaimCancel))
	claims.POST("/:id/draft", h.claimAction(ClaimReset))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Service catalog --

func (h *Handler) CreateServiceItem(c echo.Context) error {
	var item ServiceItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateServiceItem(c.Request().Context(), &item); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetServiceItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	item, err := h.svc.GetServiceItem(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListServiceItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListServiceItems(c.Request().Context(), c.QueryParam("active") == "true", pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateServiceItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var item ServiceItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.ID = id
	if err := h.svc.UpdateServiceItem(c.Request().Context(), &item); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteServiceItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteServiceItem(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Invoice --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{State: State(c.QueryParam("state"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	items, total, err := h.svc.ListInvoices(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv.ID = id
	if err := h.svc.UpdateInvoice(c.Request().Context(), &inv); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) FromPrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.FromPrescription(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) action(a Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		inv, err := h.svc.Apply(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, inv)
	}
}

// -- Insurance claim --

type claimRequest struct {
	DateFrom string  `json:"date_from"`
	DateTo   string  `json:"date_to"`
	Note     *string `json:"note"`
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	from, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_to must be YYYY-MM-DD")
	}
	claim := &Claim{DateFrom: from, DateTo: to, Note: req.Note}
	if err := h.svc.CreateClaim(c.Request().Context(), claim); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	claim, err := h.svc.GetClaim(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClaims(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteClaim(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteClaim(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) claimAction(a ClaimAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		claim, err := h.svc.ApplyClaim(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, claim)
	}
}
