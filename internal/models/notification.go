package models

import "time"

const (
	NotificationNewAppointment      = "New-Appointment-Request"
	NotificationStatusUpdated       = "Status-Updated"
	NotificationDoctorApplication   = "apply-doctor-request"
	NotificationAccountStatus       = "doctor-account-request-updated"
	NotificationProfileUpdate       = "doctor-profile-update-request"
	NotificationProfileUpdateReview = "profile-update-reviewed"
	NotificationDoctorRemoved       = "doctor-account-removed"
	NotificationDocumentUploaded    = "document-uploaded"
	NotificationDocumentComment     = "document-comment"
)

// Notification is an in-app entry embedded in the user document.
type Notification struct {
	Type        string         `bson:"type" json:"type"`
	Message     string         `bson:"message" json:"message"`
	Data        map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	OnClickPath string         `bson:"onClickPath" json:"onClickPath"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
}
