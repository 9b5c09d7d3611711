package handlers

import (
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/services"
)

// Handler groups the services the HTTP layer talks to.
type Handler struct {
	Accounts      *services.AccountService
	Appointments  *services.AppointmentService
	Documents     *services.DocumentService
	Doctors       *services.DoctorService
	Admin         *services.AdminService
	Notifications *services.NotificationService

	MaxUploadBytes int64
	Log            *zap.Logger
}

func NewHandler(
	accounts *services.AccountService,
	appointments *services.AppointmentService,
	documents *services.DocumentService,
	doctors *services.DoctorService,
	admin *services.AdminService,
	notifications *services.NotificationService,
	maxUploadBytes int64,
	log *zap.Logger,
) *Handler {
	return &Handler{
		Accounts:       accounts,
		Appointments:   appointments,
		Documents:      documents,
		Doctors:        doctors,
		Admin:          admin,
		Notifications:  notifications,
		MaxUploadBytes: maxUploadBytes,
		Log:            log,
	}
}
