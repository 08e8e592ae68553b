package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/middleware"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/internal/repository"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// ItemRequest defines the payload for item creation
type ItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Stock       int             `json:"stock"`
}

// ListItems handles retrieving the organization's items
func ListItems(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("item", "list")

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
	if sku := c.QueryParam("sku"); sku != "" {
		query.Filters = append(query.Filters, func(q *gorm.DB) *gorm.DB {
			return q.Where("sku = ?", sku)
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	items, err := itemRepo.List(c.Request().Context(), query)
	if err != nil {
		return respondError(c, log, err, "Failed to list items")
	}

	return c.JSON(http.StatusOK, items)
}

// GetItem handles retrieving a single item by ID
func GetItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("item", "get")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	item, err := itemRepo.GetByID(c.Request().Context(), id, principal.OrgScope())
	if err != nil {
		return respondError(c, log, err, "Item lookup failed")
	}

	return c.JSON(http.StatusOK, item)
}

// CreateItem handles creating a new item
func CreateItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("item", "create")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if principal.OrganizationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required to create items"})
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid item payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.UnitPrice.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_price cannot be negative"})
	}

	item := model.Item{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
		Stock:       req.Stock,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	created, err := itemRepo.Create(c.Request().Context(), &item, principal.OrganizationID, principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to create item")
	}

	log.Info("Item created",
		zap.Uint("item_id", created.ID),
		zap.Uint("organization_id", created.OrganizationID))
	return c.JSON(http.StatusCreated, created)
}

// UpdateItem handles updating an existing item
func UpdateItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("item", "update")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item ID"})
	}

	var req struct {
		Name        *string          `json:"name,omitempty"`
		Description *string          `json:"description,omitempty"`
		SKU         *string          `json:"sku,omitempty"`
		UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
		TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
		Stock       *int             `json:"stock,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid item payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	updates := map[string]any{}
	setIfPresent(updates, "name", req.Name)
	setIfPresent(updates, "description", req.Description)
	setIfPresent(updates, "sku", req.SKU)
	if req.UnitPrice != nil {
		updates["unit_price"] = *req.UnitPrice
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = *req.TaxRate
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	updated, err := itemRepo.Update(c.Request().Context(), id, updates, principal.OrgScope(), principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to update item")
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteItem handles soft-deleting an item
func DeleteItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("item", "delete")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if _, err := itemRepo.SoftDelete(c.Request().Context(), id, principal.OrgScope(), principal.ActorID()); err != nil {
		return respondError(c, log, err, "Failed to delete item")
	}

	log.Info("Item deleted", zap.Uint("item_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}
