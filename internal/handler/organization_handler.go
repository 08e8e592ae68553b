package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/middleware"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/pkg/database"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// CreateOrganization creates an organization and the owner membership for
// the acting user in one transaction.
func CreateOrganization(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("organization", "create")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse organization request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	org := model.Organization{
		ExternalID: uuid.New().String(),
		Name:       req.Name,
		IsActive:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		membership := model.Membership{
			UserID:         principal.UserID,
			OrganizationID: org.ID,
			Role:           model.RoleOwner,
			IsDefault:      true,
			IsActive:       true,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		log.Error("Failed to create organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "organization creation failed"})
	}

	log.Info("Organization created",
		zap.Uint("organization_id", org.ID),
		zap.Uint("owner_id", principal.UserID))
	return c.JSON(http.StatusCreated, org)
}

// ListUserOrganizations returns the organizations the acting user belongs to.
func ListUserOrganizations(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("organization", "list")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.Membership
	result := database.GetDB().Preload("Organization").
		Where("user_id = ? AND is_active = ?", principal.UserID, true).
		Find(&memberships)
	if result.Error != nil {
		log.Error("Failed to list organizations", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve organizations"})
	}

	type organizationResponse struct {
		ID        uint   `json:"id"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		IsDefault bool   `json:"is_default"`
	}
	response := make([]organizationResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, organizationResponse{
			ID:        m.OrganizationID,
			Name:      m.Organization.Name,
			Role:      m.Role,
			IsDefault: m.IsDefault,
		})
	}

	return c.JSON(http.StatusOK, response)
}
