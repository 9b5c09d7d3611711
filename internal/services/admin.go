package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/models"
)

const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

type AdminService struct {
	users    UserRepository
	doctors  DoctorRepository
	notifier *NotificationService
	log      *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewAdminService(users UserRepository, doctors DoctorRepository, notifier *NotificationService, log *zap.Logger, m *metrics.Collector) *AdminService {
	return &AdminService{
		users:    users,
		doctors:  doctors,
		notifier: notifier,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *AdminService) requireAdmin(ctx context.Context, callerID primitive.ObjectID) error {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return forbidden("Admin access required")
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, callerID primitive.ObjectID) ([]models.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *AdminService) ListDoctors(ctx context.Context, callerID primitive.ObjectID) ([]models.Doctor, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.doctors.List(ctx, "")
}

// ChangeAccountStatus decides a pending doctor application.
func (s *AdminService) ChangeAccountStatus(ctx context.Context, callerID, doctorID primitive.ObjectID, status models.DoctorStatus) (*models.Doctor, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if status != models.DoctorApproved && status != models.DoctorRejected {
		return nil, invalid("status must be approved or rejected")
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorPending {
		return nil, ErrNotPendingApplication
	}

	doctor.Status = status
	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	if err := s.users.SetDoctorFlag(ctx, doctor.UserID, status == models.DoctorApproved); err != nil {
		return nil, fmt.Errorf("updating doctor flag: %w", err)
	}

	message := fmt.Sprintf("Your Doctor Account Request Has %s", status)
	s.notify(ctx, doctor, models.NotificationAccountStatus, message, "Doctor Account Update", "/notification")
	return doctor, nil
}

// ReviewProfileUpdate resolves the staged profile changes of an approved doctor.
func (s *AdminService) ReviewProfileUpdate(ctx context.Context, callerID, doctorID primitive.ObjectID, action string) (*models.Doctor, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if action != ReviewApprove && action != ReviewReject {
		return nil, fmt.Errorf("%w. Use 'approve' or 'reject'", ErrInvalidAction)
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.HasPendingUpdates || doctor.PendingUpdates == nil {
		return nil, ErrNoPendingUpdates
	}

	message := "Your profile update has been rejected by admin. Your current profile information remains unchanged."
	if action == ReviewApprove {
		if err := doctor.ApplyFields(doctor.PendingUpdates.Fields); err != nil {
			return nil, fmt.Errorf("applying staged fields: %w", err)
		}
		message = "Your profile update has been approved by admin"
	}
	doctor.ClearStage()

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	s.metrics.ProfileReviewsTotal.WithLabelValues(action).Inc()

	s.notify(ctx, doctor, models.NotificationProfileUpdateReview, message, "Profile Update Reviewed", "/doctor/profile")
	return doctor, nil
}

// DeleteDoctor removes a doctor record in any status and demotes the owning
// user. The record's own userId wins over the one supplied by the caller.
func (s *AdminService) DeleteDoctor(ctx context.Context, callerID, doctorID, userID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if !doctor.UserID.IsZero() {
		userID = doctor.UserID
	}

	if err := s.doctors.Delete(ctx, doctor.ID); err != nil {
		return err
	}
	if userID.IsZero() {
		return nil
	}

	if err := s.users.SetDoctorFlag(ctx, userID, false); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.log.Warn("deleted doctor had no user", zap.String("doctor_id", doctor.ID.Hex()))
			return nil
		}
		return fmt.Errorf("demoting user: %w", err)
	}

	message := "Your doctor account has been deleted by admin. You are now a regular user."
	doctor.UserID = userID
	s.notify(ctx, doctor, models.NotificationDoctorRemoved, message, "Doctor Account Removed", "/")
	return nil
}

func (s *AdminService) notify(ctx context.Context, doctor *models.Doctor, kind, message, title, path string) {
	err := s.notifier.Notify(ctx, doctor.UserID, models.Notification{
		Type:        kind,
		Message:     message,
		Data:        map[string]any{"doctorId": doctor.ID.Hex()},
		OnClickPath: path,
	}, newPush(title, message, path))
	if err != nil {
		s.log.Warn("notifying doctor", zap.String("doctor_id", doctor.ID.Hex()), zap.String("type", kind), zap.Error(err))
	}
}
