package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/pkg/database"
	"github.com/mikews93/deusrex-sub000/pkg/jwtutil"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// Login is the bootstrap endpoint on the authentication allow-list. It
// checks the password and mints a token carrying the user's default
// organization, when one exists.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ? AND is_active = ?", req.Email, true).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Default organization, when the user has one.
	var orgExternalID string
	var membership model.Membership
	result = database.GetDB().Preload("Organization").
		Where("user_id = ? AND is_active = ?", user.ID, true).
		Order("is_default DESC, id ASC").
		First(&membership)
	if result.Error == nil {
		orgExternalID = membership.Organization.ExternalID
	}

	token, err := jwtutil.GenerateToken(user.ExternalID, user.Email, orgExternalID, user.FirstName, user.LastName)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// Register creates a local user account. Accounts created here still need a
// membership before they can touch tenant data.
func Register(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		ExternalID: uuid.New().String(),
		Email:      req.Email,
		Password:   string(hashed),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		IsActive:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&user).Error; err != nil {
		log.Warn("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("registration_failed")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email is already registered"})
	}

	log.Info("User registered", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}
