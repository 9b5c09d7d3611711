package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

func (h *Handler) GetDoctorInfo(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	doctor, err := h.Doctors.GetByUser(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "doctor data fetch success", doctor)
}

// updateProfileRequest accepts the two bags the client sends. Both are
// merged and reclassified server side.
type updateProfileRequest struct {
	DirectUpdate  map[string]any `json:"directUpdate"`
	AdminApproval map[string]any `json:"adminApproval"`
	Timezone      string         `json:"timezone"`
}

func (h *Handler) UpdateDoctorProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := make(map[string]any, len(req.DirectUpdate)+len(req.AdminApproval))
	for k, v := range req.DirectUpdate {
		patch[k] = v
	}
	for k, v := range req.AdminApproval {
		patch[k] = v
	}

	res, err := h.Doctors.UpdateProfile(c.Request.Context(), userID, patch, req.Timezone)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       res.Message,
		"data":          res.Doctor,
		"applied":       res.Applied,
		"pendingFields": res.Staged,
	})
}

func (h *Handler) GetDoctorByID(c *gin.Context) {
	var req struct {
		DoctorID string `json:"doctorId" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	doctorID, ok := parseObjectID(c, req.DoctorID, "doctorId")
	if !ok {
		return
	}
	doctor, err := h.Doctors.GetByID(c.Request.Context(), doctorID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Sigle Doc Info Fetched", doctor)
}

func (h *Handler) DoctorAppointments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	appts, err := h.Appointments.ListForDoctor(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Doctor Appointments fetch Successfully", appts)
}

func (h *Handler) GroupedDoctorAppointments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	groups, err := h.Appointments.GroupForDoctor(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Grouped appointments fetched", groups)
}

type updateStatusRequest struct {
	AppointmentID string                   `json:"appointmentsId" binding:"required"`
	Status        models.AppointmentStatus `json:"status" binding:"required"`
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	apptID, ok := parseObjectID(c, req.AppointmentID, "appointmentsId")
	if !ok {
		return
	}
	appt, err := h.Appointments.UpdateStatus(c.Request.Context(), userID, apptID, req.Status)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Appointment Status Updated", appt)
}

// DoctorSlots takes ?date=DD-MM-YYYY&timezone=Area/City. timezone defaults to UTC.
func (h *Handler) DoctorSlots(c *gin.Context) {
	doctorID, ok := parseObjectID(c, c.Param("doctorId"), "doctorId")
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		respondError(c, http.StatusBadRequest, "date is required")
		return
	}
	tz := c.DefaultQuery("timezone", "UTC")

	slots, err := h.Appointments.DoctorSlots(c.Request.Context(), doctorID, date, tz)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Available slots fetched", slots)
}
