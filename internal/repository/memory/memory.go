// Package memory is a process-local store satisfying the service repository
// interfaces. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

type Store struct {
	mu           sync.RWMutex
	users        map[primitive.ObjectID]*models.User
	doctors      map[primitive.ObjectID]*models.Doctor
	appointments map[primitive.ObjectID]*models.Appointment
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        map[primitive.ObjectID]*models.User{},
		doctors:      map[primitive.ObjectID]*models.Doctor{},
		appointments: map[primitive.ObjectID]*models.Appointment{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s} }
func (s *Store) Doctors() *DoctorRepository           { return &DoctorRepository{s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return models.ErrEmailTaken
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Notifications == nil {
		u.Notifications = []models.Notification{}
	}
	if u.SeenNotifications == nil {
		u.SeenNotifications = []models.Notification{}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *UserRepository) FindAdmin(_ context.Context) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.IsAdmin {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *UserRepository) List(_ context.Context) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, *cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (r *UserRepository) SetOTP(_ context.Context, id primitive.ObjectID, otp string, expiry time.Time, firstName string) error {
	return r.mutate(id, func(u *models.User) {
		u.EmailOTP = otp
		u.EmailOTPExpiry = &expiry
		if firstName != "" {
			u.FirstName = firstName
		}
	})
}

func (r *UserRepository) CompleteRegistration(_ context.Context, id primitive.ObjectID, reg models.Registration) error {
	return r.mutate(id, func(u *models.User) {
		u.FirstName = reg.FirstName
		u.LastName = reg.LastName
		u.Name = reg.FirstName + " " + reg.LastName
		u.MobileNumber = reg.MobileNumber
		u.Password = reg.PasswordHash
		u.Address = reg.Address
		u.DateOfBirth = reg.DateOfBirth
		u.EmailVerified = true
		u.EmailOTP = ""
		u.EmailOTPExpiry = nil
	})
}

func (r *UserRepository) SetDoctorFlag(_ context.Context, id primitive.ObjectID, isDoctor bool) error {
	return r.mutate(id, func(u *models.User) { u.IsDoctor = isDoctor })
}

func (r *UserRepository) AppendNotification(_ context.Context, id primitive.ObjectID, n models.Notification) error {
	return r.mutate(id, func(u *models.User) { u.Notifications = append(u.Notifications, n) })
}

func (r *UserRepository) MarkAllNotificationsSeen(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	err := r.mutate(id, func(u *models.User) {
		u.SeenNotifications = append(u.SeenNotifications, u.Notifications...)
		u.Notifications = []models.Notification{}
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) ClearNotifications(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	err := r.mutate(id, func(u *models.User) {
		u.Notifications = []models.Notification{}
		u.SeenNotifications = []models.Notification{}
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) SetPushSubscription(_ context.Context, id primitive.ObjectID, sub *models.PushSubscription) error {
	return r.mutate(id, func(u *models.User) {
		if sub == nil {
			u.PushSubscription = nil
			return
		}
		cp := *sub
		u.PushSubscription = &cp
	})
}

func (r *UserRepository) mutate(id primitive.ObjectID, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.now()
	return nil
}

type DoctorRepository struct{ s *Store }

func (r *DoctorRepository) Create(_ context.Context, d *models.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.doctors {
		if existing.UserID == d.UserID {
			return models.ErrDoctorExists
		}
	}
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	r.s.doctors[d.ID] = cloneDoctor(d)
	return nil
}

func (r *DoctorRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.doctors[id]
	if !ok {
		return nil, models.ErrDoctorNotFound
	}
	return cloneDoctor(d), nil
}

func (r *DoctorRepository) GetByUserID(_ context.Context, userID primitive.ObjectID) (*models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, d := range r.s.doctors {
		if d.UserID == userID {
			return cloneDoctor(d), nil
		}
	}
	return nil, models.ErrDoctorNotFound
}

func (r *DoctorRepository) List(_ context.Context, status models.DoctorStatus) ([]models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doctors := make([]models.Doctor, 0)
	for _, d := range r.s.doctors {
		if status == "" || d.Status == status {
			doctors = append(doctors, *cloneDoctor(d))
		}
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].CreatedAt.After(doctors[j].CreatedAt) })
	return doctors, nil
}

func (r *DoctorRepository) Update(_ context.Context, d *models.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doctors[d.ID]; !ok {
		return models.ErrDoctorNotFound
	}
	d.UpdatedAt = r.s.now()
	r.s.doctors[d.ID] = cloneDoctor(d)
	return nil
}

func (r *DoctorRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doctors[id]; !ok {
		return models.ErrDoctorNotFound
	}
	delete(r.s.doctors, id)
	return nil
}

type AppointmentRepository struct{ s *Store }

func (r *AppointmentRepository) Create(_ context.Context, a *models.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Documents == nil {
		a.Documents = []models.Document{}
	}
	r.s.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, models.ErrAppointmentNotFound
	}
	return cloneAppointment(a), nil
}

func (r *AppointmentRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Appointment, error) {
	return r.list(func(a *models.Appointment) bool { return a.UserID == userID }), nil
}

func (r *AppointmentRepository) ListByDoctor(_ context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error) {
	return r.list(func(a *models.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *AppointmentRepository) ListByDoctorAndDate(_ context.Context, doctorID primitive.ObjectID, date string) ([]models.Appointment, error) {
	return r.list(func(a *models.Appointment) bool { return a.DoctorID == doctorID && a.Date == date }), nil
}

func (r *AppointmentRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.AppointmentStatus) error {
	return r.mutate(id, func(a *models.Appointment) error {
		a.Status = status
		return nil
	})
}

func (r *AppointmentRepository) SetAppointmentDateTime(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return r.mutate(id, func(a *models.Appointment) error {
		a.AppointmentDateTime = &at
		return nil
	})
}

func (r *AppointmentRepository) SetGeneralNotes(_ context.Context, id primitive.ObjectID, notes string) error {
	return r.mutate(id, func(a *models.Appointment) error {
		a.GeneralNotes = notes
		return nil
	})
}

func (r *AppointmentRepository) PushDocument(_ context.Context, id primitive.ObjectID, doc models.Document) error {
	return r.mutate(id, func(a *models.Appointment) error {
		if doc.Comments == nil {
			doc.Comments = []models.Comment{}
		}
		a.Documents = append(a.Documents, cloneDocument(doc))
		return nil
	})
}

func (r *AppointmentRepository) ReplaceDocument(_ context.Context, id primitive.ObjectID, doc models.Document) error {
	return r.mutate(id, func(a *models.Appointment) error {
		existing, ok := a.FindDocument(doc.ID)
		if !ok {
			return models.ErrDocumentNotFound
		}
		comments := existing.Comments
		uploadedBy, role := existing.UploadedBy, existing.UploaderRole
		*existing = cloneDocument(doc)
		existing.Comments = comments
		existing.UploadedBy, existing.UploaderRole = uploadedBy, role
		return nil
	})
}

func (r *AppointmentRepository) PushComment(_ context.Context, id, documentID primitive.ObjectID, c models.Comment) error {
	return r.mutate(id, func(a *models.Appointment) error {
		doc, ok := a.FindDocument(documentID)
		if !ok {
			return models.ErrDocumentNotFound
		}
		doc.Comments = append(doc.Comments, c)
		return nil
	})
}

func (r *AppointmentRepository) PullDocument(_ context.Context, id, documentID primitive.ObjectID) error {
	return r.mutate(id, func(a *models.Appointment) error {
		for i := range a.Documents {
			if a.Documents[i].ID == documentID {
				a.Documents = append(a.Documents[:i], a.Documents[i+1:]...)
				return nil
			}
		}
		return models.ErrDocumentNotFound
	})
}

func (r *AppointmentRepository) list(match func(*models.Appointment) bool) []models.Appointment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Appointment, 0)
	for _, a := range r.s.appointments {
		if match(a) {
			out = append(out, *cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// mutate runs fn on a working copy and commits it only when fn succeeds.
func (r *AppointmentRepository) mutate(id primitive.ObjectID, fn func(*models.Appointment) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return models.ErrAppointmentNotFound
	}
	work := cloneAppointment(a)
	if err := fn(work); err != nil {
		return err
	}
	work.UpdatedAt = r.s.now()
	r.s.appointments[id] = work
	return nil
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Notifications = append([]models.Notification{}, u.Notifications...)
	cp.SeenNotifications = append([]models.Notification{}, u.SeenNotifications...)
	if u.PushSubscription != nil {
		sub := *u.PushSubscription
		cp.PushSubscription = &sub
	}
	if u.EmailOTPExpiry != nil {
		exp := *u.EmailOTPExpiry
		cp.EmailOTPExpiry = &exp
	}
	return &cp
}

func cloneDoctor(d *models.Doctor) *models.Doctor {
	cp := *d
	cp.Timings = append([]string(nil), d.Timings...)
	if d.PendingUpdates != nil {
		pu := *d.PendingUpdates
		pu.Fields = make(map[string]any, len(d.PendingUpdates.Fields))
		for k, v := range d.PendingUpdates.Fields {
			if ss, ok := v.([]string); ok {
				v = append([]string(nil), ss...)
			}
			pu.Fields[k] = v
		}
		cp.PendingUpdates = &pu
	}
	return &cp
}

func cloneAppointment(a *models.Appointment) *models.Appointment {
	cp := *a
	cp.DoctorInfo.Timings = append([]string(nil), a.DoctorInfo.Timings...)
	cp.Documents = make([]models.Document, len(a.Documents))
	for i, d := range a.Documents {
		cp.Documents[i] = cloneDocument(d)
	}
	if a.DateTimeUTC != nil {
		t := *a.DateTimeUTC
		cp.DateTimeUTC = &t
	}
	if a.AppointmentDateTime != nil {
		t := *a.AppointmentDateTime
		cp.AppointmentDateTime = &t
	}
	return &cp
}

func cloneDocument(d models.Document) models.Document {
	d.Comments = append([]models.Comment{}, d.Comments...)
	return d
}
