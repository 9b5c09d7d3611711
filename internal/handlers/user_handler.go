package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/services"
)

type sendOTPRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"firstName"`
}

func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.SendOTP(c.Request.Context(), req.Email, req.FirstName); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "OTP sent successfully to your email", nil)
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Email verified successfully", nil)
}

func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, "Registration completed successfully", user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login Success", "token": res.Token, "data": res.User})
}

func (h *Handler) GetUserData(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := h.Accounts.Me(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "user data fetched", user)
}

func (h *Handler) ApplyDoctor(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req services.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	doctor, err := h.Doctors.Apply(c.Request.Context(), userID, req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, "Doctor Account Applied Successfully", doctor)
}

// MarkAllNotificationsSeen serves get-all-notification, which moves every
// unseen entry to the seen list.
func (h *Handler) MarkAllNotificationsSeen(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := h.Notifications.MarkAllSeen(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "all notification marked as read", user)
}

func (h *Handler) DeleteAllNotifications(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := h.Notifications.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Notifications Deleted successfully", user)
}

// SubscribePush stores the browser PushSubscription sent as the request body.
func (h *Handler) SubscribePush(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var sub models.PushSubscription
	if !bindJSON(c, &sub) {
		return
	}
	if err := h.Notifications.Subscribe(c.Request.Context(), userID, sub); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Subscribed to push notifications", nil)
}

func (h *Handler) GetAllDoctors(c *gin.Context) {
	doctors, err := h.Doctors.ListApproved(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Doctors Lists Fetched Successfully", doctors)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req services.BookRequest
	if !bindJSON(c, &req) {
		return
	}
	appt, err := h.Appointments.Book(c.Request.Context(), userID, req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, "Appointment Book succesfully", gin.H{"appointmentId": appt.ID.Hex()})
}

type availabilityRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
}

func (h *Handler) BookingAvailability(c *gin.Context) {
	var req availabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	doctorID, ok := parseObjectID(c, req.DoctorID, "doctorId")
	if !ok {
		return
	}
	available, err := h.Appointments.CheckAvailability(c.Request.Context(), doctorID, req.Date, req.Time)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	message := "Appointments available"
	if !available {
		message = "Appointments not Available at this time"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "available": available})
}

func (h *Handler) UserAppointments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	appts, err := h.Appointments.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Users Appointments Fetch SUccessfully", appts)
}

func (h *Handler) GroupedUserAppointments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	groups, err := h.Appointments.GroupForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Grouped appointments fetched", groups)
}
