package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/storage"
)

// UploadedFile is a client upload whose content can be rewound after sniffing.
type UploadedFile struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

type FileInfo struct {
	Ext      string
	MimeType string
	FileType models.FileType
}

var allowedUploads = map[string]FileInfo{
	".pdf":  {Ext: ".pdf", MimeType: "application/pdf", FileType: models.FileTypePDF},
	".jpg":  {Ext: ".jpg", MimeType: "image/jpeg", FileType: models.FileTypeImage},
	".jpeg": {Ext: ".jpeg", MimeType: "image/jpeg", FileType: models.FileTypeImage},
	".png":  {Ext: ".png", MimeType: "image/png", FileType: models.FileTypeImage},
}

// InspectUpload enforces the size limit and accepts only PDF, JPEG and PNG
// files whose sniffed content matches their extension.
func InspectUpload(f UploadedFile, maxBytes int64) (FileInfo, error) {
	if f.Content == nil {
		return FileInfo{}, invalid("No file uploaded")
	}
	if f.Size > maxBytes {
		return FileInfo{}, ErrFileTooLarge
	}
	if f.Size == 0 {
		return FileInfo{}, invalid("uploaded file is empty")
	}

	info, ok := allowedUploads[strings.ToLower(filepath.Ext(f.Filename))]
	if !ok {
		return FileInfo{}, ErrUnsupportedFileType
	}

	detected, err := mimetype.DetectReader(f.Content)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading upload: %w", err)
	}
	if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
		return FileInfo{}, fmt.Errorf("rewinding upload: %w", err)
	}
	if !detected.Is(info.MimeType) {
		return FileInfo{}, fmt.Errorf("%w: content is %s", ErrUnsupportedFileType, detected.String())
	}
	return info, nil
}

type AppointmentDocuments struct {
	AppointmentID primitive.ObjectID       `json:"appointmentId"`
	Status        models.AppointmentStatus `json:"status"`
	Date          string                   `json:"date"`
	Time          string                   `json:"time"`
	GeneralNotes  string                   `json:"generalNotes"`
	Documents     []models.Document        `json:"documents"`
}

type DocumentService struct {
	appointments AppointmentRepository
	doctors      DoctorRepository
	users        UserRepository
	files        *storage.LocalStore
	maxBytes     int64
	notifier     *NotificationService
	log          *zap.Logger
	metrics      *metrics.Collector
	now          func() time.Time
}

func NewDocumentService(appointments AppointmentRepository, doctors DoctorRepository, users UserRepository, files *storage.LocalStore, maxBytes int64, notifier *NotificationService, log *zap.Logger, m *metrics.Collector) *DocumentService {
	return &DocumentService{
		appointments: appointments,
		doctors:      doctors,
		users:        users,
		files:        files,
		maxBytes:     maxBytes,
		notifier:     notifier,
		log:          log,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *DocumentService) Upload(ctx context.Context, callerID, appointmentID primitive.ObjectID, f UploadedFile) (*models.Document, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	p, err := resolveParticipant(ctx, s.users, s.doctors, appt, callerID)
	if err != nil {
		return nil, err
	}

	switch p.role {
	case models.RolePatient:
		if appt.Status == models.StatusRejected {
			return nil, forbidden("Cannot upload documents to a rejected appointment")
		}
	case models.RoleDoctor:
		if appt.Status != models.StatusApproved {
			return nil, forbidden("Doctor can only upload documents after approving the appointment")
		}
	default:
		return nil, forbidden("You are not authorized to upload documents to this appointment")
	}

	info, err := InspectUpload(f, s.maxBytes)
	if err != nil {
		return nil, err
	}

	at, err := s.ensureScheduledAt(ctx, appt)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	category := models.CategoryFor(now, at)

	stored := storage.NewStoredFilename(f.Filename)
	path, written, err := s.files.Save(appt.ID.Hex(), string(category), stored, f.Content)
	if err != nil {
		return nil, err
	}

	doc := models.Document{
		ID:             primitive.NewObjectID(),
		Filename:       displayName(f.Filename),
		StoredFilename: stored,
		Filepath:       path,
		FileType:       info.FileType,
		MimeType:       info.MimeType,
		FileSize:       written,
		UploadedBy:     callerID,
		UploaderRole:   p.role,
		UploadedAt:     now,
		Category:       category,
		Comments:       []models.Comment{},
	}
	if err := s.appointments.PushDocument(ctx, appt.ID, doc); err != nil {
		if rmErr := s.files.Remove(path); rmErr != nil {
			s.log.Warn("removing orphaned upload", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("recording document: %w", err)
	}
	s.metrics.DocumentsUploaded.WithLabelValues(string(category)).Inc()

	s.notifyCounterpart(ctx, appt, p.role, models.Notification{
		Type:        models.NotificationDocumentUploaded,
		Message:     fmt.Sprintf("%s uploaded %s", p.user.FullName(), doc.Filename),
		Data:        map[string]any{"appointmentId": appt.ID.Hex(), "documentId": doc.ID.Hex()},
		OnClickPath: "/appointments",
	})

	return &doc, nil
}

func (s *DocumentService) List(ctx context.Context, callerID, appointmentID primitive.ObjectID) (*AppointmentDocuments, error) {
	appt, err := s.authorizeView(ctx, callerID, appointmentID, "You are not authorized to view these documents")
	if err != nil {
		return nil, err
	}
	return &AppointmentDocuments{
		AppointmentID: appt.ID,
		Status:        appt.Status,
		Date:          appt.Date,
		Time:          appt.Time,
		GeneralNotes:  appt.GeneralNotes,
		Documents:     appt.Documents,
	}, nil
}

// Open returns the document metadata and its stored content. The caller
// closes the reader.
func (s *DocumentService) Open(ctx context.Context, callerID, appointmentID, documentID primitive.ObjectID) (*models.Document, io.ReadCloser, int64, error) {
	appt, err := s.authorizeView(ctx, callerID, appointmentID, "You are not authorized to download this document")
	if err != nil {
		return nil, nil, 0, err
	}
	doc, ok := appt.FindDocument(documentID)
	if !ok {
		return nil, nil, 0, models.ErrDocumentNotFound
	}

	rc, size, err := s.files.Open(doc.Filepath)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, nil, 0, ErrFileMissing
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("opening document: %w", err)
	}
	return doc, rc, size, nil
}

// Replace swaps the file behind a patient's document before the appointment
// starts. The old file is removed before the new one is written, so a failure
// in between leaves the document without content.
func (s *DocumentService) Replace(ctx context.Context, callerID, appointmentID, documentID primitive.ObjectID, f UploadedFile) (*models.Document, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	existing, ok := appt.FindDocument(documentID)
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	if appt.UserID != callerID {
		return nil, forbidden("Only the patient can replace documents")
	}
	if existing.UploadedBy != callerID {
		return nil, forbidden("You can only replace documents you uploaded")
	}

	info, err := InspectUpload(f, s.maxBytes)
	if err != nil {
		return nil, err
	}

	at, err := s.ensureScheduledAt(ctx, appt)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !at.IsZero() && !now.Before(at) {
		return nil, forbidden("Cannot replace documents after the appointment time")
	}

	if err := s.files.Remove(existing.Filepath); err != nil {
		s.log.Warn("removing replaced file", zap.String("path", existing.Filepath), zap.Error(err))
	}

	category := models.CategoryFor(now, at)
	stored := storage.NewStoredFilename(f.Filename)
	path, written, err := s.files.Save(appt.ID.Hex(), string(category), stored, f.Content)
	if err != nil {
		return nil, err
	}

	doc := *existing
	doc.Filename = displayName(f.Filename)
	doc.StoredFilename = stored
	doc.Filepath = path
	doc.FileType = info.FileType
	doc.MimeType = info.MimeType
	doc.FileSize = written
	doc.UploadedAt = now
	doc.Category = category

	if err := s.appointments.ReplaceDocument(ctx, appt.ID, doc); err != nil {
		if rmErr := s.files.Remove(path); rmErr != nil {
			s.log.Warn("removing orphaned upload", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("recording replacement: %w", err)
	}
	s.metrics.DocumentsUploaded.WithLabelValues(string(category)).Inc()

	return &doc, nil
}

func (s *DocumentService) AddComment(ctx context.Context, callerID, appointmentID, documentID primitive.ObjectID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("Comment text is required")
	}

	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !user.IsDoctor {
		return nil, forbidden("Only doctors can add comments to documents")
	}
	if _, err := assignedDoctor(ctx, s.doctors, appt, callerID,
		"Only doctors can add comments to documents",
		"You can only comment on your assigned appointments"); err != nil {
		return nil, err
	}
	doc, ok := appt.FindDocument(documentID)
	if !ok {
		return nil, models.ErrDocumentNotFound
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    callerID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.appointments.PushComment(ctx, appt.ID, doc.ID, comment); err != nil {
		return nil, err
	}

	s.notifyCounterpart(ctx, appt, models.RoleDoctor, models.Notification{
		Type:        models.NotificationDocumentComment,
		Message:     fmt.Sprintf("Dr. %s commented on %s", user.FullName(), doc.Filename),
		Data:        map[string]any{"appointmentId": appt.ID.Hex(), "documentId": doc.ID.Hex()},
		OnClickPath: "/appointments",
	})

	return &comment, nil
}

func (s *DocumentService) UpdateNotes(ctx context.Context, callerID, appointmentID primitive.ObjectID, notes string) error {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if _, err := assignedDoctor(ctx, s.doctors, appt, callerID,
		"Only doctors can update appointment notes",
		"You can only update notes for your assigned appointments"); err != nil {
		return err
	}
	return s.appointments.SetGeneralNotes(ctx, appt.ID, notes)
}

// Delete removes a document and its file. Admin only.
func (s *DocumentService) Delete(ctx context.Context, callerID, appointmentID, documentID primitive.ObjectID) error {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return forbidden("Only admins can delete documents")
	}

	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	doc, ok := appt.FindDocument(documentID)
	if !ok {
		return models.ErrDocumentNotFound
	}

	if err := s.files.Remove(doc.Filepath); err != nil {
		s.log.Warn("removing document file", zap.String("path", doc.Filepath), zap.Error(err))
	}
	return s.appointments.PullDocument(ctx, appt.ID, doc.ID)
}

func (s *DocumentService) authorizeView(ctx context.Context, callerID, appointmentID primitive.ObjectID, reason string) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	p, err := resolveParticipant(ctx, s.users, s.doctors, appt, callerID)
	if err != nil {
		return nil, err
	}
	if p.role == "" && !p.isAdmin() {
		return nil, forbidden(reason)
	}
	return appt, nil
}

// ensureScheduledAt computes and caches appointmentDateTime on first use.
// The zero time is returned when the appointment time cannot be interpreted.
func (s *DocumentService) ensureScheduledAt(ctx context.Context, appt *models.Appointment) (time.Time, error) {
	at, ok := appt.ScheduledAt()
	if !ok {
		return time.Time{}, nil
	}
	if appt.AppointmentDateTime == nil {
		if err := s.appointments.SetAppointmentDateTime(ctx, appt.ID, at); err != nil {
			return time.Time{}, fmt.Errorf("caching appointment time: %w", err)
		}
		appt.AppointmentDateTime = &at
	}
	return at, nil
}

// notifyCounterpart tells the other side of the appointment about activity by actor.
func (s *DocumentService) notifyCounterpart(ctx context.Context, appt *models.Appointment, actor models.UploaderRole, n models.Notification) {
	target := appt.DoctorInfo.UserID
	if actor == models.RoleDoctor {
		target = appt.UserID
	}
	if target.IsZero() {
		return
	}
	if err := s.notifier.Notify(ctx, target, n, nil); err != nil {
		s.log.Warn("document notification failed", zap.String("appointment_id", appt.ID.Hex()), zap.Error(err))
	}
}

func displayName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}
