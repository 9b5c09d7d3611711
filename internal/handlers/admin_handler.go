package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/services"
)

func (h *Handler) AdminListUsers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	users, err := h.Admin.ListUsers(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "users data list", users)
}

func (h *Handler) AdminListDoctors(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	doctors, err := h.Admin.ListDoctors(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Doctors Data list", doctors)
}

type accountStatusRequest struct {
	DoctorID string              `json:"doctorId" binding:"required"`
	Status   models.DoctorStatus `json:"status" binding:"required"`
}

func (h *Handler) ChangeAccountStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req accountStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	doctorID, ok := parseObjectID(c, req.DoctorID, "doctorId")
	if !ok {
		return
	}
	doctor, err := h.Admin.ChangeAccountStatus(c.Request.Context(), userID, doctorID, req.Status)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Account Status Updated", doctor)
}

type reviewRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

func (h *Handler) ApproveProfileUpdate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	doctorID, ok := parseObjectID(c, req.DoctorID, "doctorId")
	if !ok {
		return
	}
	doctor, err := h.Admin.ReviewProfileUpdate(c.Request.Context(), userID, doctorID, req.Action)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	message := "Profile update rejected successfully"
	if req.Action == services.ReviewApprove {
		message = "Profile update approved successfully"
	}
	respondOK(c, message, doctor)
}

type deleteDoctorRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	UserID   string `json:"userId"`
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	adminID, ok := callerID(c)
	if !ok {
		return
	}
	var req deleteDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	doctorID, ok := parseObjectID(c, req.DoctorID, "doctorId")
	if !ok {
		return
	}
	owner := primitive.NilObjectID
	if req.UserID != "" {
		if owner, ok = parseObjectID(c, req.UserID, "userId"); !ok {
			return
		}
	}
	if err := h.Admin.DeleteDoctor(c.Request.Context(), adminID, doctorID, owner); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Doctor deleted successfully and user converted to regular user", nil)
}
