package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/medrescue-api/internal/config"
	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/repository/memory"
	"github.com/harentsoaR/medrescue-api/internal/storage"
	"github.com/harentsoaR/medrescue-api/internal/utils"
)

const maxUploadBytes = 1 << 20

func init() {
	utils.PasswordCost = bcrypt.MinCost
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fakePush struct {
	mu    sync.Mutex
	err   error
	sends int
}

func (f *fakePush) Send(_ context.Context, _ *models.PushSubscription, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return f.err
}

func (f *fakePush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type sentOTP struct {
	to, otp string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeMailer) SendOTP(_ context.Context, to, _, otp string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentOTP{to: to, otp: otp})
	return nil
}

func (f *fakeMailer) last() sentOTP {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentOTP{}
	}
	return f.sent[len(f.sent)-1]
}

// fixture wires every service against the in-memory store with a movable clock.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	now    time.Time
	store  *memory.Store
	push   *fakePush
	mailer *fakeMailer
	files  *storage.LocalStore

	notifier     *NotificationService
	appointments *AppointmentService
	documents    *DocumentService
	doctors      *DoctorService
	admin        *AdminService
	accounts     *AccountService

	adminUser  *models.User
	patient    *models.User
	doctorUser *models.User
	doctor     *models.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		now:    time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		store:  memory.NewStore(),
		push:   &fakePush{},
		mailer: &fakeMailer{},
		files:  storage.NewLocalStore(t.TempDir()),
	}
	clock := func() time.Time { return f.now }

	users, doctors, appts := f.store.Users(), f.store.Doctors(), f.store.Appointments()
	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())

	f.adminUser = f.createUser("admin@example.com", "Ada", "Admin", func(u *models.User) { u.IsAdmin = true })
	f.patient = f.createUser("patient@example.com", "Pat", "Ient", nil)
	f.doctorUser = f.createUser("doctor@example.com", "Greg", "House", func(u *models.User) { u.IsDoctor = true })

	f.notifier = NewNotificationService(users, f.push, NewAdminRegistry(f.adminUser.ID), time.Second, log, m)
	f.notifier.now = clock
	f.appointments = NewAppointmentService(appts, doctors, users, f.notifier, log, m)
	f.appointments.now = clock
	f.documents = NewDocumentService(appts, doctors, users, f.files, maxUploadBytes, f.notifier, log, m)
	f.documents.now = clock
	f.doctors = NewDoctorService(doctors, users, f.notifier, log, m)
	f.doctors.now = clock
	f.admin = NewAdminService(users, doctors, f.notifier, log, m)
	f.admin.now = clock
	jwt := utils.NewJWTManager(config.JWTConfig{Secret: "test-secret-test-secret-test-secret", TokenTTL: time.Hour, Issuer: "test"})
	f.accounts = NewAccountService(users, f.mailer, jwt, 10*time.Minute, log)
	f.accounts.now = clock

	f.doctor = f.createDoctor(f.doctorUser, models.DoctorApproved)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.notifier.Wait(ctx)
	})
	return f
}

func (f *fixture) createUser(email, first, last string, mutate func(*models.User)) *models.User {
	f.t.Helper()
	u := &models.User{Email: email, FirstName: first, LastName: last, EmailVerified: true}
	if mutate != nil {
		mutate(u)
	}
	if err := f.store.Users().Create(f.ctx, u); err != nil {
		f.t.Fatalf("creating user: %v", err)
	}
	return u
}

func (f *fixture) createDoctor(owner *models.User, status models.DoctorStatus) *models.Doctor {
	f.t.Helper()
	d := &models.Doctor{
		UserID:              owner.ID,
		FirstName:           owner.FirstName,
		LastName:            owner.LastName,
		Phone:               "555-0100",
		Email:               owner.Email,
		Address:             "1 Hospital Rd",
		Specialization:      "Diagnostics",
		Experience:          "12",
		FeesPerCunsaltation: 300,
		Timings:             []string{"09:00", "17:00"},
		Status:              status,
	}
	if err := f.store.Doctors().Create(f.ctx, d); err != nil {
		f.t.Fatalf("creating doctor: %v", err)
	}
	return d
}

// newDoctor creates another user with a doctor profile in the given status.
func (f *fixture) newDoctor(email string, status models.DoctorStatus) (*models.User, *models.Doctor) {
	f.t.Helper()
	u := f.createUser(email, "Other", "Doc", func(u *models.User) { u.IsDoctor = status == models.DoctorApproved })
	return u, f.createDoctor(u, status)
}

func (f *fixture) book(date, clock string) *models.Appointment {
	f.t.Helper()
	appt, err := f.appointments.Book(f.ctx, f.patient.ID, BookRequest{
		DoctorID: f.doctor.ID.Hex(),
		UserID:   f.patient.ID.Hex(),
		Date:     date,
		Time:     clock,
	})
	if err != nil {
		f.t.Fatalf("booking %s %s: %v", date, clock, err)
	}
	return appt
}

func (f *fixture) setStatus(appt *models.Appointment, status models.AppointmentStatus) {
	f.t.Helper()
	if err := f.store.Appointments().UpdateStatus(f.ctx, appt.ID, status); err != nil {
		f.t.Fatalf("setting status: %v", err)
	}
}

func (f *fixture) user(u *models.User) *models.User {
	f.t.Helper()
	got, err := f.store.Users().GetByID(f.ctx, u.ID)
	if err != nil {
		f.t.Fatalf("loading user: %v", err)
	}
	return got
}

func (f *fixture) waitPush() {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.notifier.Wait(ctx); err != nil {
		f.t.Fatalf("waiting for push: %v", err)
	}
}

func assertForbidden(t *testing.T, err error, reason string) {
	t.Helper()
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want forbidden %q", err, reason)
	}
	if reason != "" && fe.Reason != reason {
		t.Fatalf("reason = %q, want %q", fe.Reason, reason)
	}
}

func assertInvalid(t *testing.T, err error) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
