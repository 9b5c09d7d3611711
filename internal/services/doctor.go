package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/utils"
)

type ApplyRequest struct {
	FirstName           string   `json:"firstName" binding:"required"`
	LastName            string   `json:"lastName" binding:"required"`
	Phone               string   `json:"phone" binding:"required"`
	Email               string   `json:"email" binding:"required,email"`
	Website             string   `json:"website"`
	Address             string   `json:"address" binding:"required"`
	Specialization      string   `json:"specialization" binding:"required"`
	Experience          string   `json:"experience" binding:"required"`
	FeesPerCunsaltation float64  `json:"feesPerCunsaltation" binding:"gte=0"`
	Timings             []string `json:"timings" binding:"required,len=2"`
	// Timezone the timings are expressed in. Empty means they are already UTC.
	Timezone string `json:"timezone"`
}

// ProfileUpdateResult tells the doctor which fields took effect and which
// wait for admin review.
type ProfileUpdateResult struct {
	Doctor  *models.Doctor `json:"doctor"`
	Applied []string       `json:"applied"`
	Staged  []string       `json:"staged"`
	Message string         `json:"message"`
}

type DoctorService struct {
	doctors  DoctorRepository
	users    UserRepository
	notifier *NotificationService
	log      *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewDoctorService(doctors DoctorRepository, users UserRepository, notifier *NotificationService, log *zap.Logger, m *metrics.Collector) *DoctorService {
	return &DoctorService{
		doctors:  doctors,
		users:    users,
		notifier: notifier,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Apply files a doctor application for the caller. Every field goes through
// the same policy table used for later profile edits.
func (s *DoctorService) Apply(ctx context.Context, callerID primitive.ObjectID, req ApplyRequest) (*models.Doctor, error) {
	if _, err := s.users.GetByID(ctx, callerID); err != nil {
		return nil, err
	}

	timings, err := s.toUTCTimings(req.Timings, req.Timezone)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doctor := &models.Doctor{
		UserID:    callerID,
		Status:    models.DoctorPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = doctor.ApplyFields(map[string]any{
		"firstName":           req.FirstName,
		"lastName":            req.LastName,
		"phone":               req.Phone,
		"email":               req.Email,
		"website":             req.Website,
		"address":             req.Address,
		"specialization":      req.Specialization,
		"experience":          req.Experience,
		"feesPerCunsaltation": req.FeesPerCunsaltation,
		"timings":             timings,
	})
	if err != nil {
		return nil, invalid(err.Error())
	}

	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s Has Applied For A Doctor Account", doctor.FullName())
	err = s.notifier.NotifyAdmin(ctx, models.Notification{
		Type:        models.NotificationDoctorApplication,
		Message:     message,
		Data:        map[string]any{"doctorId": doctor.ID.Hex(), "name": doctor.FullName()},
		OnClickPath: "/admin/doctors",
	}, newPush("New Doctor Application", message, "/admin/doctors"))
	if err != nil {
		s.log.Warn("notifying admin of application", zap.String("doctor_id", doctor.ID.Hex()), zap.Error(err))
	}

	return doctor, nil
}

func (s *DoctorService) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *DoctorService) GetByID(ctx context.Context, doctorID primitive.ObjectID) (*models.Doctor, error) {
	return s.doctors.GetByID(ctx, doctorID)
}

func (s *DoctorService) ListApproved(ctx context.Context) ([]models.Doctor, error) {
	return s.doctors.List(ctx, models.DoctorApproved)
}

// UpdateProfile applies self-service fields at once. Admin-gated fields are
// written directly while the application is still pending and staged for
// review once the doctor is approved. Staging reads and rewrites the doctor
// record, so concurrent edits by the same doctor can overwrite each other.
func (s *DoctorService) UpdateProfile(ctx context.Context, callerID primitive.ObjectID, patch map[string]any, tz string) (*ProfileUpdateResult, error) {
	if len(patch) == 0 {
		return nil, invalid("no fields to update")
	}

	doctor, err := s.doctors.GetByUserID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if doctor.Status == models.DoctorRejected || doctor.Status == models.DoctorBlocked {
		return nil, forbidden(fmt.Sprintf("Profile cannot be updated while the account is %s", doctor.Status))
	}

	direct, gated, problems := models.SplitDoctorPatch(patch)
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}
	if t, ok := gated["timings"]; ok && tz != "" {
		converted, err := s.toUTCTimings(t.([]string), tz)
		if err != nil {
			return nil, err
		}
		gated["timings"] = converted
	}

	if err := doctor.ApplyFields(direct); err != nil {
		return nil, invalid(err.Error())
	}

	result := &ProfileUpdateResult{Applied: keys(direct), Staged: []string{}}
	if len(gated) > 0 {
		if doctor.Status == models.DoctorPending {
			if err := doctor.ApplyFields(gated); err != nil {
				return nil, invalid(err.Error())
			}
			result.Applied = append(result.Applied, keys(gated)...)
			sort.Strings(result.Applied)
		} else {
			doctor.Stage(gated, callerID, s.now().UTC())
			result.Staged = keys(gated)
		}
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	result.Doctor = doctor

	if len(result.Staged) == 0 {
		result.Message = "Profile updated successfully"
		return result, nil
	}

	result.Message = fmt.Sprintf("Profile updated. Changes to %s require admin approval", strings.Join(result.Staged, ", "))
	message := fmt.Sprintf("Dr. %s has updated their profile and requires approval", doctor.FullName())
	err = s.notifier.NotifyAdmin(ctx, models.Notification{
		Type:    models.NotificationProfileUpdate,
		Message: message,
		Data: map[string]any{
			"doctorId":      doctor.ID.Hex(),
			"name":          doctor.FullName(),
			"updatedFields": result.Staged,
		},
		OnClickPath: "/admin/doctors",
	}, newPush("Profile Update Request", message, "/admin/doctors"))
	if err != nil {
		s.log.Warn("notifying admin of profile update", zap.String("doctor_id", doctor.ID.Hex()), zap.Error(err))
	}
	return result, nil
}

// toUTCTimings converts doctor-declared working hours from tz into UTC.
func (s *DoctorService) toUTCTimings(timings []string, tz string) ([]string, error) {
	if tz == "" {
		return timings, nil
	}
	ref := s.now()
	out := make([]string, len(timings))
	for i, t := range timings {
		utc, err := utils.LocalClockToUTC(strings.TrimSpace(t), tz, ref)
		if err != nil {
			return nil, invalid("timings: " + err.Error())
		}
		out[i] = utc
	}
	if _, err := models.NormalizeDoctorField("timings", out); err != nil {
		return nil, invalid(err.Error() + " in UTC")
	}
	return out, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
