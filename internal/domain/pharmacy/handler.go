package pharmacy

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
	read := api.Group("", auth.RequireRole(auth.RolePharmacist, auth.RoleDoctor, auth.RoleAccountant))
	read.GET("/products", h.ListProducts)
	read.GET("/products/:id", h.GetProduct)
	read.GET("/stock-moves", h.ListStockMoves)
	read.GET("/stock-moves/:id", h.GetStockMove)

	stock := api.Group("", auth.RequireRole(auth.RolePharmacist))
	stock.POST("/products", h.CreateProduct)
	stock.PUT("/products/:id", h.UpdateProduct)
	stock.DELETE("/products/:id", h.DeleteProduct)
	stock.POST("/stock-moves", h.CreateStockMove)

	rx := api.Group("/prescriptions", auth.RequireRole(auth.RolePharmacist, auth.RoleDoctor))
	rx.GET("", h.ListPrescriptions)
	rx.GET("/:id", h.GetPrescription)
	rx.POST("", h.CreatePrescription)
	rx.PUT("/:id", h.UpdatePrescription)
	rx.DELETE("/:id", h.DeletePrescription)
	rx.POST("/:id/lines", h.AddPrescriptionLine)
	rx.PUT("/lines/:id", h.UpdatePrescriptionLine)
	rx.DELETE("/lines/:id", h.DeletePrescriptionLine)

	po := api.Group("/purchase-orders", auth.RequireRole(auth.RolePharmacist, auth.RoleAccountant))
	po.GET("", h.ListPurchases)
	po.GET("/:id", h.GetPurchase)
	po.POST("", h.CreatePurchase)
	po.PUT("/:id", h.UpdatePurchase)
	po.DELETE("/:id", h.DeletePurchase)
	po.POST("/:id/confirm", h.purchaseAction(PurchaseConfirm))
	po.POST("/:id/pay", h.purchaseAction(PurchasePay))
	po.POST("/:id/cancel", h.purchaseAction(PurchaseCancel))
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

// -- Product --

func (h *Handler) CreateProduct(c echo.Context) error {
	var p Product
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProduct(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProducts(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListProducts(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Product
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdateProduct(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProduct(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Stock move --

func (h *Handler) CreateStockMove(c echo.Context) error {
	var m StockMove
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStockMove(c.Request().Context(), &m); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetStockMove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetStockMove(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListStockMoves(c echo.Context) error {
	pg := pagination.FromContext(c)
	productID, err := optionalUUID(c, "product_id")
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListStockMoves(c.Request().Context(), productID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Prescription --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePrescription(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := optionalUUID(c, "patient_id")
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListPrescriptions(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePrescription(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePrescription(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddPrescriptionLine(c echo.Context) error {
	orderID, err := parseID(c)
	if err != nil {
		return err
	}
	var l PrescriptionLine
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.OrderID = orderID
	if err := h.svc.AddPrescriptionLine(c.Request().Context(), &l); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdatePrescriptionLine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var l PrescriptionLine
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = id
	if err := h.svc.UpdatePrescriptionLine(c.Request().Context(), &l); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeletePrescriptionLine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePrescriptionLine(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Purchase order --

func (h *Handler) CreatePurchase(c echo.Context) error {
	var po PurchaseOrder
	if err := c.Bind(&po); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePurchase(c.Request().Context(), &po); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, po)
}

func (h *Handler) GetPurchase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	po, err := h.svc.GetPurchase(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, po)
}

func (h *Handler) ListPurchases(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPurchases(c.Request().Context(), PurchaseState(c.QueryParam("state")), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePurchase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var po PurchaseOrder
	if err := c.Bind(&po); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	po.ID = id
	if err := h.svc.UpdatePurchase(c.Request().Context(), &po); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, po)
}

func (h *Handler) DeletePurchase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePurchase(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) purchaseAction(a PurchaseAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		po, err := h.svc.ApplyPurchase(c.Request().Context(), id, a)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, po)
	}
}
