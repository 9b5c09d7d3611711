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

// AvailabilityWindowMinutes is the spacing enforced around an existing
// booking on the same doctor and date.
const AvailabilityWindowMinutes = 60

type BookRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	UserID   string `json:"userId"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Timezone string `json:"timezone"`
}

type AppointmentService struct {
	appointments AppointmentRepository
	doctors      DoctorRepository
	users        UserRepository
	notifier     *NotificationService
	log          *zap.Logger
	metrics      *metrics.Collector
	now          func() time.Time
}

func NewAppointmentService(appointments AppointmentRepository, doctors DoctorRepository, users UserRepository, notifier *NotificationService, log *zap.Logger, m *metrics.Collector) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		doctors:      doctors,
		users:        users,
		notifier:     notifier,
		log:          log,
		metrics:      m,
		now:          time.Now,
	}
}

// CheckAvailability reports false when the doctor already has an
// appointment on date whose time is within one hour of clock, inclusive.
// The check is advisory: Book does not repeat it atomically.
func (s *AppointmentService) CheckAvailability(ctx context.Context, doctorID primitive.ObjectID, date, clock string) (bool, error) {
	if _, err := utils.ParseDate(date); err != nil {
		return false, invalid(err.Error())
	}
	requested, err := utils.ParseClock(clock)
	if err != nil {
		return false, invalid(err.Error())
	}

	existing, err := s.appointments.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return false, fmt.Errorf("loading appointments: %w", err)
	}
	for _, a := range existing {
		booked, err := utils.ParseClock(a.Time)
		if err != nil {
			continue
		}
		if diff := booked - requested; diff <= AvailabilityWindowMinutes && diff >= -AvailabilityWindowMinutes {
			return false, nil
		}
	}
	return true, nil
}

func (s *AppointmentService) Book(ctx context.Context, callerID primitive.ObjectID, req BookRequest) (*models.Appointment, error) {
	if req.UserID != "" && req.UserID != callerID.Hex() {
		return nil, forbidden("You can only book appointments for yourself")
	}
	doctorID, err := parseID(req.DoctorID, "doctorId")
	if err != nil {
		return nil, err
	}

	slot, err := utils.LocalToUTC(req.Date, req.Time, req.Timezone)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if slot.Before(s.now()) {
		return nil, invalid("cannot book an appointment in the past")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorApproved {
		return nil, forbidden("This doctor is not accepting appointments")
	}

	now := s.now().UTC()
	appt := &models.Appointment{
		UserID:     user.ID,
		DoctorID:   doctor.ID,
		DoctorInfo: models.SnapshotDoctor(doctor),
		UserInfo:   models.SnapshotUser(user),
		Date:       req.Date,
		Time:       req.Time,
		Status:     models.StatusPending,
		Documents:  []models.Document{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Timezone != "" {
		appt.Timezone = req.Timezone
		appt.DateTimeUTC = &slot
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("creating appointment: %w", err)
	}
	s.metrics.AppointmentsBooked.Inc()

	message := fmt.Sprintf("A new Appointment Request from %s", user.FullName())
	err = s.notifier.Notify(ctx, doctor.UserID, models.Notification{
		Type:        models.NotificationNewAppointment,
		Message:     message,
		Data:        map[string]any{"appointmentId": appt.ID.Hex(), "date": appt.Date, "time": appt.Time},
		OnClickPath: "/doctor-appointments",
	}, newPush("New Appointment Request", message, "/doctor-appointments"))
	if err != nil {
		s.log.Warn("notifying doctor of booking", zap.String("appointment_id", appt.ID.Hex()), zap.Error(err))
	}

	return appt, nil
}

func (s *AppointmentService) UpdateStatus(ctx context.Context, callerID, appointmentID primitive.ObjectID, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.IsValid() {
		return nil, invalid(fmt.Sprintf("unknown status %q", status))
	}
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if _, err := assignedDoctor(ctx, s.doctors, appt, callerID,
		"Only doctors can update appointment status",
		"You can only update your own appointments"); err != nil {
		return nil, err
	}
	if !appt.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, appt.Status, status)
	}

	if err := s.appointments.UpdateStatus(ctx, appt.ID, status); err != nil {
		return nil, err
	}
	appt.Status = status
	s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()

	message := fmt.Sprintf("your appointment has been updated %s", status)
	err = s.notifier.Notify(ctx, appt.UserID, models.Notification{
		Type:        models.NotificationStatusUpdated,
		Message:     message,
		Data:        map[string]any{"appointmentId": appt.ID.Hex(), "status": string(status)},
		OnClickPath: "/appointments",
	}, newPush("Appointment Status Updated", message, "/appointments"))
	if err != nil {
		s.log.Warn("notifying patient of status change", zap.String("appointment_id", appt.ID.Hex()), zap.Error(err))
	}

	return appt, nil
}

func (s *AppointmentService) ListForUser(ctx context.Context, callerID primitive.ObjectID) ([]models.Appointment, error) {
	return s.appointments.ListByUser(ctx, callerID)
}

func (s *AppointmentService) ListForDoctor(ctx context.Context, callerID primitive.ObjectID) ([]models.Appointment, error) {
	doctor, err := s.doctors.GetByUserID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.appointments.ListByDoctor(ctx, doctor.ID)
}

type AppointmentGroup struct {
	Doctor       *models.DoctorSnapshot `json:"doctor,omitempty"`
	Patient      *models.UserSnapshot   `json:"patient,omitempty"`
	Appointments []models.Appointment   `json:"appointments"`
	Statistics   GroupStatistics        `json:"statistics"`
}

type GroupStatistics struct {
	TotalAppointments     int        `json:"totalAppointments"`
	CompletedAppointments int        `json:"completedAppointments"`
	UpcomingAppointments  int        `json:"upcomingAppointments"`
	TotalDocuments        int        `json:"totalDocuments"`
	FirstVisit            *time.Time `json:"firstVisit"`
	LastVisit             *time.Time `json:"lastVisit"`
}

// GroupForUser groups the caller's appointments by doctor.
func (s *AppointmentService) GroupForUser(ctx context.Context, callerID primitive.ObjectID) ([]AppointmentGroup, error) {
	appts, err := s.appointments.ListByUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return GroupAppointments(appts, true, s.now()), nil
}

// GroupForDoctor groups the calling doctor's appointments by patient.
func (s *AppointmentService) GroupForDoctor(ctx context.Context, callerID primitive.ObjectID) ([]AppointmentGroup, error) {
	appts, err := s.ListForDoctor(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return GroupAppointments(appts, false, s.now()), nil
}

// GroupAppointments is a read-only projection. byDoctor selects the
// counterpart: the doctor when viewed by a patient, the patient otherwise.
// Groups are ordered by most recent visit first.
func GroupAppointments(appts []models.Appointment, byDoctor bool, now time.Time) []AppointmentGroup {
	index := map[primitive.ObjectID]int{}
	groups := make([]AppointmentGroup, 0)

	for _, a := range appts {
		key := a.UserID
		if byDoctor {
			key = a.DoctorID
		}
		i, ok := index[key]
		if !ok {
			g := AppointmentGroup{Appointments: []models.Appointment{}}
			if byDoctor {
				info := a.DoctorInfo
				g.Doctor = &info
			} else {
				info := a.UserInfo
				g.Patient = &info
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[key] = i
		}

		g := &groups[i]
		g.Appointments = append(g.Appointments, a)
		g.Statistics.TotalAppointments++
		g.Statistics.TotalDocuments += len(a.Documents)
		if a.Status == models.StatusCompleted {
			g.Statistics.CompletedAppointments++
		}

		at, ok := a.ScheduledAt()
		if !ok {
			continue
		}
		if (a.Status == models.StatusPending || a.Status == models.StatusApproved) && at.After(now) {
			g.Statistics.UpcomingAppointments++
		}
		if g.Statistics.FirstVisit == nil || at.Before(*g.Statistics.FirstVisit) {
			t := at
			g.Statistics.FirstVisit = &t
		}
		if g.Statistics.LastVisit == nil || at.After(*g.Statistics.LastVisit) {
			t := at
			g.Statistics.LastVisit = &t
		}
	}

	for i := range groups {
		sort.SliceStable(groups[i].Appointments, func(x, y int) bool {
			ax, _ := groups[i].Appointments[x].ScheduledAt()
			ay, _ := groups[i].Appointments[y].ScheduledAt()
			return ax.After(ay)
		})
	}
	sort.SliceStable(groups, func(x, y int) bool {
		lx, ly := groups[x].Statistics.LastVisit, groups[y].Statistics.LastVisit
		switch {
		case lx == nil:
			return false
		case ly == nil:
			return true
		}
		return lx.After(*ly)
	})
	return groups
}

type SlotView struct {
	Time        string `json:"time"`
	DisplayTime string `json:"displayTime"`
	Past        bool   `json:"past"`
	Booked      bool   `json:"booked"`
}

type HourView struct {
	Hour        string     `json:"hour"`
	DisplayHour string     `json:"displayHour"`
	Slots       []SlotView `json:"slots"`
}

type DoctorSlots struct {
	DoctorID     string     `json:"doctorId"`
	Date         string     `json:"date"`
	Timezone     string     `json:"timezone"`
	TimezoneAbbr string     `json:"timezoneAbbr"`
	Hours        []HourView `json:"hours"`
}

// DoctorSlots lists a doctor's bookable slots for date in the viewer's
// timezone. Timings are stored in UTC and converted for that date; a slot is
// booked when a non-rejected appointment holds exactly that time.
func (s *AppointmentService) DoctorSlots(ctx context.Context, doctorID primitive.ObjectID, date, tz string) (*DoctorSlots, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if _, err := utils.LoadTimezone(tz); err != nil {
		return nil, invalid(err.Error())
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	out := &DoctorSlots{
		DoctorID:     doctor.ID.Hex(),
		Date:         date,
		Timezone:     tz,
		TimezoneAbbr: utils.TimezoneAbbr(tz, day.Add(12*time.Hour)),
		Hours:        []HourView{},
	}
	local := make([]string, 0, len(doctor.Timings))
	for _, clock := range doctor.Timings {
		c, err := utils.UTCClockToLocal(strings.TrimSpace(clock), tz, day)
		if err != nil {
			return out, nil
		}
		local = append(local, c)
	}
	blocks := utils.GenerateTimeSlotsFromTimings(local)
	if len(blocks) == 0 {
		return out, nil
	}

	booked, err := s.bookedSlots(ctx, doctor.ID, day, tz)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, block := range blocks {
		hv := HourView{Hour: block.Hour, DisplayHour: utils.FormatClockDisplay(block.DisplayHour), Slots: make([]SlotView, 0, len(block.Slots))}
		for _, slot := range block.Slots {
			hv.Slots = append(hv.Slots, SlotView{
				Time:        slot,
				DisplayTime: utils.FormatClockDisplay(slot),
				Past:        utils.IsSlotInPast(date, slot, tz, now),
				Booked:      booked[slot],
			})
		}
		out.Hours = append(out.Hours, hv)
	}
	return out, nil
}

// bookedSlots returns the viewer-local times held on day. Dates are stored in
// the booker's zone, so the neighbouring days are loaded too and every
// appointment is placed by its UTC instant.
func (s *AppointmentService) bookedSlots(ctx context.Context, doctorID primitive.ObjectID, day time.Time, tz string) (map[string]bool, error) {
	date := day.Format(utils.DateLayout)
	booked := map[string]bool{}
	for _, offset := range []int{-1, 0, 1} {
		existing, err := s.appointments.ListByDoctorAndDate(ctx, doctorID, day.AddDate(0, 0, offset).Format(utils.DateLayout))
		if err != nil {
			return nil, fmt.Errorf("loading appointments: %w", err)
		}
		for _, a := range existing {
			if a.Status == models.StatusRejected {
				continue
			}
			at, ok := a.ScheduledAt()
			if !ok {
				continue
			}
			if local, err := utils.UTCToLocal(at, tz); err == nil && local.Date == date {
				booked[local.Time] = true
			}
		}
	}
	return booked, nil
}
