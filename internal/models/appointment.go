package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/utils"
)

// State transitions:
//
//	pending → approved → completed
//	pending → reject
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusRejected  AppointmentStatus = "reject"
	StatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

type DocumentCategory string

const (
	CategoryPreAppointment  DocumentCategory = "pre-appointment"
	CategoryPostAppointment DocumentCategory = "post-appointment"
)

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
)

type UploaderRole string

const (
	RolePatient UploaderRole = "patient"
	RoleDoctor  UploaderRole = "doctor"
)

// DoctorSnapshot is copied onto the appointment at booking time.
type DoctorSnapshot struct {
	ID                  primitive.ObjectID `bson:"_id" json:"_id"`
	UserID              primitive.ObjectID `bson:"userId" json:"userId"`
	FirstName           string             `bson:"firstName" json:"firstName"`
	LastName            string             `bson:"lastName" json:"lastName"`
	Phone               string             `bson:"phone" json:"phone"`
	Email               string             `bson:"email" json:"email"`
	Address             string             `bson:"address" json:"address"`
	Specialization      string             `bson:"specialization" json:"specialization"`
	FeesPerCunsaltation float64            `bson:"feesPerCunsaltation" json:"feesPerCunsaltation"`
	Timings             []string           `bson:"timings" json:"timings"`
}

type UserSnapshot struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	MobileNumber string             `bson:"mobileNumber" json:"mobileNumber"`
}

func SnapshotDoctor(d *Doctor) DoctorSnapshot {
	return DoctorSnapshot{
		ID:                  d.ID,
		UserID:              d.UserID,
		FirstName:           d.FirstName,
		LastName:            d.LastName,
		Phone:               d.Phone,
		Email:               d.Email,
		Address:             d.Address,
		Specialization:      d.Specialization,
		FeesPerCunsaltation: d.FeesPerCunsaltation,
		Timings:             append([]string(nil), d.Timings...),
	}
}

func SnapshotUser(u *User) UserSnapshot {
	return UserSnapshot{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Name:         u.FullName(),
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
	}
}

type Appointment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	DoctorID primitive.ObjectID `bson:"doctorId" json:"doctorId"`

	DoctorInfo DoctorSnapshot `bson:"doctorInfo" json:"doctorInfo"`
	UserInfo   UserSnapshot   `bson:"userInfo" json:"userInfo"`

	Date        string     `bson:"date" json:"date"` // DD-MM-YYYY
	Time        string     `bson:"time" json:"time"` // HH:mm
	Timezone    string     `bson:"timezone,omitempty" json:"timezone,omitempty"`
	DateTimeUTC *time.Time `bson:"dateTimeUTC,omitempty" json:"dateTimeUTC,omitempty"`

	Status       AppointmentStatus `bson:"status" json:"status"`
	Documents    []Document        `bson:"documents" json:"documents"`
	GeneralNotes string            `bson:"generalNotes" json:"generalNotes"`

	// Cached on the first document upload.
	AppointmentDateTime *time.Time `bson:"appointmentDateTime,omitempty" json:"appointmentDateTime,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:   {StatusApproved, StatusRejected},
		StatusApproved:  {StatusCompleted},
		StatusRejected:  {},
		StatusCompleted: {},
	}

	for _, s := range allowed[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ScheduledAt returns the appointment moment. The cached value wins, then
// the booking-time UTC instant, then date and time read as UTC wall clock.
// ok is false when none of them can be interpreted.
func (a *Appointment) ScheduledAt() (at time.Time, ok bool) {
	if a.AppointmentDateTime != nil {
		return *a.AppointmentDateTime, true
	}
	if a.DateTimeUTC != nil {
		return *a.DateTimeUTC, true
	}
	t, err := utils.LocalToUTC(a.Date, a.Time, "UTC")
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CategoryFor classifies an upload made at now. An unknown appointment time
// counts as pre-appointment.
func CategoryFor(now, at time.Time) DocumentCategory {
	if at.IsZero() || now.Before(at) {
		return CategoryPreAppointment
	}
	return CategoryPostAppointment
}

func (a *Appointment) FindDocument(id primitive.ObjectID) (*Document, bool) {
	for i := range a.Documents {
		if a.Documents[i].ID == id {
			return &a.Documents[i], true
		}
	}
	return nil, false
}

type Document struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	Filename       string             `bson:"filename" json:"filename"`
	StoredFilename string             `bson:"storedFilename" json:"storedFilename"`
	Filepath       string             `bson:"filepath" json:"-"`
	FileType       FileType           `bson:"fileType" json:"fileType"`
	MimeType       string             `bson:"mimeType" json:"mimeType"`
	FileSize       int64              `bson:"fileSize" json:"fileSize"`
	UploadedBy     primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploaderRole   UploaderRole       `bson:"uploaderRole" json:"uploaderRole"`
	UploadedAt     time.Time          `bson:"uploadedAt" json:"uploadedAt"`
	Category       DocumentCategory   `bson:"category" json:"category"`
	Comments       []Comment          `bson:"comments" json:"comments"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
