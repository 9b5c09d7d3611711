package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/middleware"
	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/services"
)

// Every response carries success and message; payloads go in data.
type APIResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Message: message})
}

func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: strings.Join(validErr.Fields, "; "),
			Fields:  validErr.Fields,
		})
		return
	}

	var forbidden *services.ForbiddenError
	if errors.As(err, &forbidden) {
		respondError(c, http.StatusForbidden, forbidden.Reason)
		return
	}

	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrDoctorNotFound),
		errors.Is(err, models.ErrAppointmentNotFound),
		errors.Is(err, models.ErrDocumentNotFound),
		errors.Is(err, services.ErrFileMissing):
		respondError(c, http.StatusNotFound, capitalize(err.Error()))

	case errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrDoctorExists):
		respondError(c, http.StatusConflict, capitalize(err.Error()))

	case errors.Is(err, services.ErrInvalidStatusTransition),
		errors.Is(err, services.ErrNoPendingUpdates),
		errors.Is(err, services.ErrInvalidAction),
		errors.Is(err, services.ErrNotPendingApplication),
		errors.Is(err, services.ErrUnsupportedFileType),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrAlreadyVerified):
		respondError(c, http.StatusBadRequest, capitalize(err.Error()))

	case errors.Is(err, services.ErrFileTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, capitalize(err.Error()))

	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid Email or Password")

	case errors.Is(err, services.ErrEmailNotVerified):
		respondError(c, http.StatusForbidden, "Please verify your email first to login")

	default:
		h.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("requestID")),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// callerID returns the authenticated user. The auth middleware guarantees
// the key is present on protected routes.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Auth Failed")
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseObjectID(c *gin.Context, raw, field string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+field)
		return primitive.NilObjectID, false
	}
	return id, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
