// Package handler contains the HTTP handlers. Resource handlers are thin:
// they bind the request, take the tenant scope and acting user from the
// resolved principal, and delegate to the scoped repositories or the sale
// writer.
package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/internal/repository"
	"github.com/mikews93/deusrex-sub000/internal/sales"
	"github.com/mikews93/deusrex-sub000/pkg/config"
)

var (
	patientRepo *repository.Repository[model.Patient, *model.Patient]
	clientRepo  *repository.Repository[model.Client, *model.Client]
	itemRepo    *repository.Repository[model.Item, *model.Item]
	saleRepo    *repository.Repository[model.Sale, *model.Sale]
	saleWriter  *sales.Writer
)

// Initialize wires the repositories and the sale writer. Must be called once
// from main after the database is up.
func Initialize(db *gorm.DB, cfg *config.Config) {
	patientRepo = repository.New[model.Patient](db)
	clientRepo = repository.New[model.Client](db)
	itemRepo = repository.New[model.Item](db)
	saleRepo = repository.New[model.Sale](db, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Items")
	})
	saleWriter = sales.NewWriter(db, cfg.Sales)
}

// respondError maps a taxonomy error onto its HTTP status. Server-side
// failures are logged with context and surfaced generically.
func respondError(c echo.Context, log *zap.Logger, err error, msg string) error {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		log.Error(msg, zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	log.Warn(msg, zap.Error(err))
	return c.JSON(status, echo.Map{"error": err.Error()})
}
