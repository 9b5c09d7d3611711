package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

// Not-found lookups return the matching models.Err*NotFound sentinel.

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	FindAdmin(ctx context.Context) (*models.User, error)

	SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time, firstName string) error
	CompleteRegistration(ctx context.Context, id primitive.ObjectID, reg models.Registration) error
	SetDoctorFlag(ctx context.Context, id primitive.ObjectID, isDoctor bool) error

	AppendNotification(ctx context.Context, id primitive.ObjectID, n models.Notification) error
	MarkAllNotificationsSeen(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ClearNotifications(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SetPushSubscription(ctx context.Context, id primitive.ObjectID, sub *models.PushSubscription) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *models.Doctor) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Doctor, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Doctor, error)
	// List filters by status; an empty status returns every doctor.
	List(ctx context.Context, status models.DoctorStatus) ([]models.Doctor, error)
	Update(ctx context.Context, d *models.Doctor) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error)
	ListByDoctorAndDate(ctx context.Context, doctorID primitive.ObjectID, date string) ([]models.Appointment, error)

	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.AppointmentStatus) error
	SetAppointmentDateTime(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetGeneralNotes(ctx context.Context, id primitive.ObjectID, notes string) error

	PushDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) error
	// ReplaceDocument overwrites the file metadata of an existing document and keeps its comments.
	ReplaceDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) error
	PushComment(ctx context.Context, id, documentID primitive.ObjectID, c models.Comment) error
	PullDocument(ctx context.Context, id, documentID primitive.ObjectID) error
}
