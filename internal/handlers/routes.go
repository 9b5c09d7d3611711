package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on r. authLimit guards the public account
// endpoints and auth protects everything else.
func (h *Handler) RegisterRoutes(r gin.IRouter, auth, authLimit gin.HandlerFunc) {
	v1 := r.Group("/api/v1")

	public := v1.Group("/user", authLimit)
	{
		public.POST("/send-otp", h.SendOTP)
		public.POST("/verify-otp", h.VerifyOTP)
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
	}

	user := v1.Group("/user", auth)
	{
		user.POST("/getUserData", h.GetUserData)
		user.POST("/apply-doctor", h.ApplyDoctor)
		user.POST("/get-all-notification", h.MarkAllNotificationsSeen)
		user.POST("/delete-all-notification", h.DeleteAllNotifications)
		user.GET("/getAllDoctors", h.GetAllDoctors)
		user.POST("/book-appointment", h.BookAppointment)
		user.POST("/booking-availbility", h.BookingAvailability)
		user.GET("/user-appointments", h.UserAppointments)
		user.GET("/grouped-appointments", h.GroupedUserAppointments)
		user.POST("/subscribe-push", h.SubscribePush)
	}

	doctor := v1.Group("/doctor", auth)
	{
		doctor.POST("/getDoctorInfo", h.GetDoctorInfo)
		doctor.POST("/updateProfile", h.UpdateDoctorProfile)
		doctor.POST("/getDoctorById", h.GetDoctorByID)
		doctor.GET("/doctor-appointments", h.DoctorAppointments)
		doctor.POST("/update-status", h.UpdateAppointmentStatus)
		doctor.GET("/grouped-appointments", h.GroupedDoctorAppointments)
		doctor.GET("/:doctorId/slots", h.DoctorSlots)
	}

	appointment := v1.Group("/appointment/:id", auth)
	{
		appointment.POST("/upload-document", h.UploadDocument)
		appointment.GET("/documents", h.ListDocuments)
		appointment.GET("/document/:docId/download", h.DownloadDocument)
		appointment.PUT("/document/:docId/replace", h.ReplaceDocument)
		appointment.POST("/document/:docId/comment", h.AddDocumentComment)
		appointment.PUT("/notes", h.UpdateAppointmentNotes)
		appointment.DELETE("/document/:docId", h.DeleteDocument)
	}

	admin := v1.Group("/admin", auth)
	{
		admin.GET("/getAllUsers", h.AdminListUsers)
		admin.GET("/getAllDoctors", h.AdminListDoctors)
		admin.POST("/changeAccountStatus", h.ChangeAccountStatus)
		admin.POST("/approveProfileUpdate", h.ApproveProfileUpdate)
		admin.DELETE("/deleteDoctor", h.DeleteDoctor)
	}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
