package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/middleware"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/internal/repository"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// ClientRequest defines the payload for client creation
type ClientRequest struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// ListClients handles retrieving the organization's clients
func ListClients(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("client", "list")

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
	if name := c.QueryParam("name"); name != "" {
		query.Filters = append(query.Filters, func(q *gorm.DB) *gorm.DB {
			return q.Where("name LIKE ?", "%"+name+"%")
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	clients, err := clientRepo.List(c.Request().Context(), query)
	if err != nil {
		return respondError(c, log, err, "Failed to list clients")
	}

	return c.JSON(http.StatusOK, clients)
}

// GetClient handles retrieving a single client by ID
func GetClient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("client", "get")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	client, err := clientRepo.GetByID(c.Request().Context(), id, principal.OrgScope())
	if err != nil {
		return respondError(c, log, err, "Client lookup failed")
	}

	return c.JSON(http.StatusOK, client)
}

// CreateClient handles creating a new client
func CreateClient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("client", "create")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if principal.OrganizationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required to create clients"})
	}

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid client payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	client := model.Client{
		Name:       req.Name,
		DocumentID: req.DocumentID,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	created, err := clientRepo.Create(c.Request().Context(), &client, principal.OrganizationID, principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to create client")
	}

	log.Info("Client created",
		zap.Uint("client_id", created.ID),
		zap.Uint("organization_id", created.OrganizationID))
	return c.JSON(http.StatusCreated, created)
}

// UpdateClient handles updating an existing client
func UpdateClient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("client", "update")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	var req struct {
		Name       *string `json:"name,omitempty"`
		DocumentID *string `json:"document_id,omitempty"`
		Email      *string `json:"email,omitempty"`
		Phone      *string `json:"phone,omitempty"`
		Address    *string `json:"address,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid client payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	updates := map[string]any{}
	setIfPresent(updates, "name", req.Name)
	setIfPresent(updates, "document_id", req.DocumentID)
	setIfPresent(updates, "email", req.Email)
	setIfPresent(updates, "phone", req.Phone)
	setIfPresent(updates, "address", req.Address)

	defer prometheus.TrackDBOperation("update")(time.Now())
	updated, err := clientRepo.Update(c.Request().Context(), id, updates, principal.OrgScope(), principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to update client")
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteClient handles soft-deleting a client
func DeleteClient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("client", "delete")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if _, err := clientRepo.SoftDelete(c.Request().Context(), id, principal.OrgScope(), principal.ActorID()); err != nil {
		return respondError(c, log, err, "Failed to delete client")
	}

	log.Info("Client deleted", zap.Uint("client_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Client deleted successfully"})
}
