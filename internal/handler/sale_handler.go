package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/middleware"
	"github.com/mikews93/deusrex-sub000/internal/repository"
	"github.com/mikews93/deusrex-sub000/internal/sales"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// CreateSale handles creating a sale with its line items in one transaction
func CreateSale(c echo.Context) error {
	log := logger.FromContext(c)

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if principal.OrganizationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required to create sales"})
	}

	var req sales.CreateInput
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid sale payload", zap.Error(err))
		prometheus.RecordSaleOperation("create", "error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	sale, err := saleWriter.CreateSale(c.Request().Context(), req, principal.OrganizationID, principal.ActorID())
	if err != nil {
		if apperr.ErrorCode(err) == apperr.EAmountMismatch {
			prometheus.RecordSaleOperation("create", "amount_mismatch")
		} else {
			prometheus.RecordSaleOperation("create", "error")
		}
		return respondError(c, log, err, "Failed to create sale")
	}

	prometheus.RecordSaleOperation("create", "ok")
	log.Info("Sale created",
		zap.Uint("sale_id", sale.ID),
		zap.String("number", sale.Number),
		zap.Int("items", len(sale.Items)),
		zap.Uint("organization_id", sale.OrganizationID))
	return c.JSON(http.StatusCreated, sale)
}

// ListSales handles retrieving the organization's sales with their items
func ListSales(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sale", "list")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := repository.ListQuery{
		OrganizationID: principal.OrgScope(),
		IncludeDeleted: c.QueryParam("include_deleted") == "true",
		Limit:          queryParamInt(c, "limit"),
		Offset:         queryParamInt(c, "offset"),
	}
	if status := c.QueryParam("status"); status != "" {
		query.Filters = append(query.Filters, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", status)
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	results, err := saleRepo.List(c.Request().Context(), query)
	if err != nil {
		return respondError(c, log, err, "Failed to list sales")
	}

	return c.JSON(http.StatusOK, results)
}

// GetSale handles retrieving a single sale with its items
func GetSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sale", "get")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	sale, err := saleRepo.GetByID(c.Request().Context(), id, principal.OrgScope())
	if err != nil {
		return respondError(c, log, err, "Sale lookup failed")
	}

	return c.JSON(http.StatusOK, sale)
}

// UpdateSale handles updating a sale header. Amounts are re-validated
// against the stored items; items themselves are immutable.
func UpdateSale(c echo.Context) error {
	log := logger.FromContext(c)

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale ID"})
	}

	var req sales.UpdateInput
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid sale payload", zap.Error(err))
		prometheus.RecordSaleOperation("update", "error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	sale, err := saleWriter.UpdateSale(c.Request().Context(), id, req, principal.OrgScope(), principal.ActorID())
	if err != nil {
		if apperr.ErrorCode(err) == apperr.EAmountMismatch {
			prometheus.RecordSaleOperation("update", "amount_mismatch")
		} else {
			prometheus.RecordSaleOperation("update", "error")
		}
		return respondError(c, log, err, "Failed to update sale")
	}

	prometheus.RecordSaleOperation("update", "ok")
	return c.JSON(http.StatusOK, sale)
}

// UpdateSaleStatus moves a sale along its status lifecycle
func UpdateSaleStatus(c echo.Context) error {
	log := logger.FromContext(c)

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale ID"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	sale, err := saleWriter.UpdateStatus(c.Request().Context(), id, req.Status, principal.OrgScope(), principal.ActorID())
	if err != nil {
		prometheus.RecordSaleOperation("status", "error")
		return respondError(c, log, err, "Failed to update sale status")
	}

	prometheus.RecordSaleOperation("status", "ok")
	log.Info("Sale status updated",
		zap.Uint("sale_id", sale.ID),
		zap.String("status", sale.Status))
	return c.JSON(http.StatusOK, sale)
}

// DeleteSale handles soft-deleting a sale
func DeleteSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sale", "delete")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if _, err := saleRepo.SoftDelete(c.Request().Context(), id, principal.OrgScope(), principal.ActorID()); err != nil {
		return respondError(c, log, err, "Failed to delete sale")
	}

	log.Info("Sale deleted", zap.Uint("sale_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Sale deleted successfully"})
}
