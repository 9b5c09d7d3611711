package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

// participant describes how the caller relates to an appointment.
type participant struct {
	user *models.User
	role models.UploaderRole // empty when the caller is neither patient nor assigned doctor
}

func (p participant) isAdmin() bool { return p.user.IsAdmin }

// resolveParticipant loads the caller and decides whether they are the
// appointment's patient or its assigned doctor. The doctor check resolves the
// caller's own doctor profile and compares it to the appointment's doctorId.
func resolveParticipant(ctx context.Context, users UserRepository, doctors DoctorRepository, appt *models.Appointment, callerID primitive.ObjectID) (participant, error) {
	user, err := users.GetByID(ctx, callerID)
	if err != nil {
		return participant{}, err
	}

	p := participant{user: user}
	if appt.UserID == callerID {
		p.role = models.RolePatient
		return p, nil
	}

	if user.IsDoctor {
		doctor, err := doctors.GetByUserID(ctx, callerID)
		switch {
		case errors.Is(err, models.ErrDoctorNotFound):
		case err != nil:
			return participant{}, err
		case doctor.ID == appt.DoctorID:
			p.role = models.RoleDoctor
		}
	}
	return p, nil
}

// assignedDoctor returns the caller's doctor profile when it is the one
// assigned to appt.
func assignedDoctor(ctx context.Context, doctors DoctorRepository, appt *models.Appointment, callerID primitive.ObjectID, notDoctor, notAssigned string) (*models.Doctor, error) {
	doctor, err := doctors.GetByUserID(ctx, callerID)
	if errors.Is(err, models.ErrDoctorNotFound) {
		return nil, forbidden(notDoctor)
	}
	if err != nil {
		return nil, err
	}
	if doctor.ID != appt.DoctorID {
		return nil, forbidden(notAssigned)
	}
	return doctor, nil
}

func parseID(raw, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, invalid("invalid " + field)
	}
	return id, nil
}
