package handler

import (
	"net/http"
	"strconv"
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

// PatientRequest defines the payload for patient creation
type PatientRequest struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	DocumentID string     `json:"document_id"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
}

// ListPatients handles retrieving the organization's patients
func ListPatients(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("patient", "list")

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
	if search := c.QueryParam("search"); search != "" {
		query.Filters = append(query.Filters, func(q *gorm.DB) *gorm.DB {
			pattern := "%" + search + "%"
			return q.Where("first_name LIKE ? OR last_name LIKE ? OR document_id LIKE ?", pattern, pattern, pattern)
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	patients, err := patientRepo.List(c.Request().Context(), query)
	if err != nil {
		return respondError(c, log, err, "Failed to list patients")
	}

	return c.JSON(http.StatusOK, patients)
}

// GetPatient handles retrieving a single patient by ID
func GetPatient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("patient", "get")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	patient, err := patientRepo.GetByID(c.Request().Context(), id, principal.OrgScope())
	if err != nil {
		return respondError(c, log, err, "Patient lookup failed")
	}

	return c.JSON(http.StatusOK, patient)
}

// CreatePatient handles creating a new patient
func CreatePatient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("patient", "create")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if principal.OrganizationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required to create patients"})
	}

	var req PatientRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid patient payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.FirstName == "" || req.LastName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name and last_name are required"})
	}

	patient := model.Patient{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		DocumentID: req.DocumentID,
		Email:      req.Email,
		Phone:      req.Phone,
		BirthDate:  req.BirthDate,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	created, err := patientRepo.Create(c.Request().Context(), &patient, principal.OrganizationID, principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to create patient")
	}

	log.Info("Patient created",
		zap.Uint("patient_id", created.ID),
		zap.Uint("organization_id", created.OrganizationID))
	return c.JSON(http.StatusCreated, created)
}

// UpdatePatient handles updating an existing patient
func UpdatePatient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("patient", "update")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	var req struct {
		FirstName  *string    `json:"first_name,omitempty"`
		LastName   *string    `json:"last_name,omitempty"`
		DocumentID *string    `json:"document_id,omitempty"`
		Email      *string    `json:"email,omitempty"`
		Phone      *string    `json:"phone,omitempty"`
		BirthDate  *time.Time `json:"birth_date,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid patient payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	updates := map[string]any{}
	setIfPresent(updates, "first_name", req.FirstName)
	setIfPresent(updates, "last_name", req.LastName)
	setIfPresent(updates, "document_id", req.DocumentID)
	setIfPresent(updates, "email", req.Email)
	setIfPresent(updates, "phone", req.Phone)
	if req.BirthDate != nil {
		updates["birth_date"] = *req.BirthDate
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	updated, err := patientRepo.Update(c.Request().Context(), id, updates, principal.OrgScope(), principal.ActorID())
	if err != nil {
		return respondError(c, log, err, "Failed to update patient")
	}

	return c.JSON(http.StatusOK, updated)
}

// DeletePatient handles soft-deleting a patient
func DeletePatient(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("patient", "delete")

	principal, ok := middleware.PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathParamID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if _, err := patientRepo.SoftDelete(c.Request().Context(), id, principal.OrgScope(), principal.ActorID()); err != nil {
		return respondError(c, log, err, "Failed to delete patient")
	}

	log.Info("Patient deleted", zap.Uint("patient_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Patient deleted successfully"})
}

func pathParamID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func queryParamInt(c echo.Context, name string) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return value
}

func setIfPresent(updates map[string]any, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
