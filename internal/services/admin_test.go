package services

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

func TestAdminOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.admin.ListUsers(f.ctx, f.patient.ID)
	assertForbidden(t, err, "Admin access required")
	_, err = f.admin.ListDoctors(f.ctx, f.doctorUser.ID)
	assertForbidden(t, err, "Admin access required")

	users, err := f.admin.ListUsers(f.ctx, f.adminUser.ID)
	if err != nil || len(users) != 3 {
		t.Errorf("users = %d, err = %v", len(users), err)
	}
}

func TestChangeAccountStatus(t *testing.T) {
	f := newFixture(t)
	owner, pending := f.newDoctor("applicant@example.com", models.DoctorPending)

	got, err := f.admin.ChangeAccountStatus(f.ctx, f.adminUser.ID, pending.ID, models.DoctorApproved)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.DoctorApproved || !f.user(owner).IsDoctor {
		t.Errorf("doctor = %+v", got)
	}
	n := f.user(owner).Notifications
	if len(n) != 1 || n[0].Message != "Your Doctor Account Request Has approved" {
		t.Errorf("notifications = %+v", n)
	}

	if _, err := f.admin.ChangeAccountStatus(f.ctx, f.adminUser.ID, pending.ID, models.DoctorRejected); !errors.Is(err, ErrNotPendingApplication) {
		t.Errorf("deciding twice: err = %v", err)
	}

	_, err = f.admin.ChangeAccountStatus(f.ctx, f.adminUser.ID, pending.ID, models.DoctorBlocked)
	assertInvalid(t, err)
}

func TestRejectApplicationClearsDoctorFlag(t *testing.T) {
	f := newFixture(t)
	owner, pending := f.newDoctor("applicant@example.com", models.DoctorPending)

	if _, err := f.admin.ChangeAccountStatus(f.ctx, f.adminUser.ID, pending.ID, models.DoctorRejected); err != nil {
		t.Fatal(err)
	}
	if f.user(owner).IsDoctor {
		t.Error("rejected applicant flagged as doctor")
	}
}

func stageFees(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.doctors.UpdateProfile(f.ctx, f.doctorUser.ID, map[string]any{
		"feesPerCunsaltation": float64(900),
		"timings":             []any{"08:00", "12:00"},
	}, ""); err != nil {
		t.Fatal(err)
	}
}

func TestApproveProfileUpdate(t *testing.T) {
	f := newFixture(t)
	stageFees(t, f)

	got, err := f.admin.ReviewProfileUpdate(f.ctx, f.adminUser.ID, f.doctor.ID, ReviewApprove)
	if err != nil {
		t.Fatal(err)
	}
	if got.FeesPerCunsaltation != 900 || !reflect.DeepEqual(got.Timings, []string{"08:00", "12:00"}) {
		t.Errorf("approved doctor = %+v", got)
	}
	if got.HasPendingUpdates || got.PendingUpdates != nil {
		t.Errorf("stage not cleared")
	}

	n := f.user(f.doctorUser).Notifications
	if last := n[len(n)-1]; last.Message != "Your profile update has been approved by admin" {
		t.Errorf("notification = %+v", last)
	}

	if _, err := f.admin.ReviewProfileUpdate(f.ctx, f.adminUser.ID, f.doctor.ID, ReviewApprove); !errors.Is(err, ErrNoPendingUpdates) {
		t.Errorf("second review: err = %v", err)
	}
}

func TestRejectProfileUpdateLeavesProfileUnchanged(t *testing.T) {
	f := newFixture(t)
	before, _ := f.store.Doctors().GetByID(f.ctx, f.doctor.ID)
	stageFees(t, f)

	got, err := f.admin.ReviewProfileUpdate(f.ctx, f.adminUser.ID, f.doctor.ID, ReviewReject)
	if err != nil {
		t.Fatal(err)
	}

	got.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(got, before) {
		t.Errorf("profile changed by rejection:\n got %+v\nwant %+v", got, before)
	}
	stored, _ := f.store.Doctors().GetByID(f.ctx, f.doctor.ID)
	stored.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(stored, before) {
		t.Errorf("stored profile changed by rejection: %+v", stored)
	}

	n := f.user(f.doctorUser).Notifications
	if last := n[len(n)-1]; last.Message != "Your profile update has been rejected by admin. Your current profile information remains unchanged." {
		t.Errorf("notification = %+v", last)
	}
}

func TestReviewProfileUpdateInvalidAction(t *testing.T) {
	f := newFixture(t)
	stageFees(t, f)

	if _, err := f.admin.ReviewProfileUpdate(f.ctx, f.adminUser.ID, f.doctor.ID, "maybe"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("err = %v", err)
	}
	stored, _ := f.store.Doctors().GetByID(f.ctx, f.doctor.ID)
	if !stored.HasPendingUpdates {
		t.Error("invalid action cleared the stage")
	}
}

func TestDeleteDoctor(t *testing.T) {
	f := newFixture(t)

	if err := f.admin.DeleteDoctor(f.ctx, f.adminUser.ID, f.doctor.ID, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Doctors().GetByID(f.ctx, f.doctor.ID); !errors.Is(err, models.ErrDoctorNotFound) {
		t.Errorf("doctor still stored: %v", err)
	}

	owner := f.user(f.doctorUser)
	if owner.IsDoctor {
		t.Error("owner still flagged as doctor")
	}
	if last := owner.Notifications[len(owner.Notifications)-1]; last.Type != models.NotificationDoctorRemoved {
		t.Errorf("notification = %+v", last)
	}

	if err := f.admin.DeleteDoctor(f.ctx, f.adminUser.ID, f.doctor.ID, primitive.NilObjectID); !errors.Is(err, models.ErrDoctorNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
