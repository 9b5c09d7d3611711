package services

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

func upload(name string, content []byte) UploadedFile {
	return UploadedFile{Filename: name, Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func TestInspectUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    UploadedFile
		wantErr error
		want    models.FileType
	}{
		{name: "pdf", file: upload("scan.PDF", pdfBytes), want: models.FileTypePDF},
		{name: "png", file: upload("xray.png", pngBytes), want: models.FileTypeImage},
		{name: "too large", file: UploadedFile{Filename: "a.pdf", Size: maxUploadBytes + 1, Content: bytes.NewReader(pdfBytes)}, wantErr: ErrFileTooLarge},
		{name: "extension", file: upload("notes.txt", []byte("hello")), wantErr: ErrUnsupportedFileType},
		{name: "disguised", file: upload("fake.pdf", pngBytes), wantErr: ErrUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := InspectUpload(tt.file, maxUploadBytes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if info.FileType != tt.want {
				t.Errorf("file type = %s", info.FileType)
			}
			rest, _ := io.ReadAll(tt.file.Content)
			if int64(len(rest)) != tt.file.Size {
				t.Errorf("content not rewound: %d bytes left", len(rest))
			}
		})
	}

	_, err := InspectUpload(UploadedFile{Filename: "a.pdf"}, maxUploadBytes)
	assertInvalid(t, err)
}

func TestUploadCategoryIsFixedAtUploadTime(t *testing.T) {
	f := newFixture(t)
	appt := f.book("01-06-2025", "10:00")

	pre, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("before.pdf", pdfBytes))
	if err != nil {
		t.Fatalf("upload before: %v", err)
	}
	if pre.Category != models.CategoryPreAppointment || pre.UploaderRole != models.RolePatient {
		t.Errorf("pre doc = %+v", pre)
	}

	f.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	post, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("after.png", pngBytes))
	if err != nil {
		t.Fatalf("upload after: %v", err)
	}
	if post.Category != models.CategoryPostAppointment {
		t.Errorf("upload at the appointment time = %s", post.Category)
	}

	list, err := f.documents.List(f.ctx, f.patient.ID, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Documents) != 2 || list.Documents[0].Category != models.CategoryPreAppointment {
		t.Errorf("existing documents were reclassified: %+v", list.Documents)
	}

	stored, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
	if stored.AppointmentDateTime == nil || !stored.AppointmentDateTime.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("appointmentDateTime = %v", stored.AppointmentDateTime)
	}
	if _, err := os.Stat(stored.Documents[0].Filepath); err != nil {
		t.Errorf("stored file: %v", err)
	}

	doctorUser := f.user(f.doctorUser)
	if got := doctorUser.Notifications[len(doctorUser.Notifications)-1]; got.Type != models.NotificationDocumentUploaded {
		t.Errorf("doctor not told about the upload: %+v", got)
	}
}

func TestUploadGating(t *testing.T) {
	f := newFixture(t)
	stranger := f.createUser("stranger@example.com", "Str", "Anger", nil)

	pending := f.book("10-06-2025", "10:00")
	_, err := f.documents.Upload(f.ctx, f.doctorUser.ID, pending.ID, upload("r.pdf", pdfBytes))
	assertForbidden(t, err, "Doctor can only upload documents after approving the appointment")

	if _, err := f.documents.Upload(f.ctx, f.patient.ID, pending.ID, upload("r.pdf", pdfBytes)); err != nil {
		t.Errorf("patient on pending appointment: %v", err)
	}

	f.setStatus(pending, models.StatusApproved)
	doc, err := f.documents.Upload(f.ctx, f.doctorUser.ID, pending.ID, upload("r.pdf", pdfBytes))
	if err != nil {
		t.Fatalf("doctor on approved appointment: %v", err)
	}
	if doc.UploaderRole != models.RoleDoctor {
		t.Errorf("role = %s", doc.UploaderRole)
	}

	rejected := f.book("11-06-2025", "10:00")
	f.setStatus(rejected, models.StatusRejected)
	_, err = f.documents.Upload(f.ctx, f.patient.ID, rejected.ID, upload("r.pdf", pdfBytes))
	assertForbidden(t, err, "Cannot upload documents to a rejected appointment")

	_, err = f.documents.Upload(f.ctx, stranger.ID, pending.ID, upload("r.pdf", pdfBytes))
	assertForbidden(t, err, "You are not authorized to upload documents to this appointment")

	// Authorization is decided before the file is looked at.
	_, err = f.documents.Upload(f.ctx, stranger.ID, pending.ID, upload("notes.txt", []byte("plain text")))
	assertForbidden(t, err, "You are not authorized to upload documents to this appointment")
	_, err = f.documents.Upload(f.ctx, stranger.ID, pending.ID, upload("big.pdf", make([]byte, maxUploadBytes+1)))
	assertForbidden(t, err, "You are not authorized to upload documents to this appointment")

	_, err = f.documents.Upload(f.ctx, f.patient.ID, primitive.NewObjectID(), upload("r.pdf", pdfBytes))
	if !errors.Is(err, models.ErrAppointmentNotFound) {
		t.Errorf("unknown appointment: err = %v", err)
	}
}

func TestViewAccess(t *testing.T) {
	f := newFixture(t)
	appt := f.book("10-06-2025", "10:00")
	doc, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("scan.pdf", pdfBytes))
	if err != nil {
		t.Fatal(err)
	}
	other, _ := f.newDoctor("other@example.com", models.DoctorApproved)

	for _, caller := range []primitive.ObjectID{f.patient.ID, f.doctorUser.ID, f.adminUser.ID} {
		_, rc, size, err := f.documents.Open(f.ctx, caller, appt.ID, doc.ID)
		if err != nil {
			t.Fatalf("open as %s: %v", caller.Hex(), err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if size != int64(len(pdfBytes)) || !bytes.Equal(body, pdfBytes) {
			t.Errorf("content mismatch for %s", caller.Hex())
		}
	}

	_, err = f.documents.List(f.ctx, other.ID, appt.ID)
	assertForbidden(t, err, "You are not authorized to view these documents")

	_, _, _, err = f.documents.Open(f.ctx, f.patient.ID, appt.ID, primitive.NewObjectID())
	if !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("unknown document: err = %v", err)
	}

	stored, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
	os.Remove(stored.Documents[0].Filepath)
	if _, _, _, err := f.documents.Open(f.ctx, f.patient.ID, appt.ID, doc.ID); !errors.Is(err, ErrFileMissing) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestReplace(t *testing.T) {
	f := newFixture(t)
	appt := f.book("01-06-2025", "10:00")
	doc, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("old.pdf", pdfBytes))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Appointments().PushComment(f.ctx, appt.ID, doc.ID, models.Comment{ID: primitive.NewObjectID(), Text: "keep"}); err != nil {
		t.Fatal(err)
	}
	oldPath := func() string {
		a, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
		return a.Documents[0].Filepath
	}()

	_, err = f.documents.Replace(f.ctx, f.doctorUser.ID, appt.ID, doc.ID, upload("new.png", pngBytes))
	assertForbidden(t, err, "Only the patient can replace documents")

	got, err := f.documents.Replace(f.ctx, f.patient.ID, appt.ID, doc.ID, upload("new.png", pngBytes))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got.ID != doc.ID || got.Filename != "new.png" || got.FileType != models.FileTypeImage {
		t.Errorf("replaced = %+v", got)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("old file still present: %v", err)
	}

	stored, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
	if len(stored.Documents) != 1 || len(stored.Documents[0].Comments) != 1 {
		t.Errorf("comments lost on replace: %+v", stored.Documents)
	}

	f.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err = f.documents.Replace(f.ctx, f.patient.ID, appt.ID, doc.ID, upload("late.pdf", pdfBytes))
	assertForbidden(t, err, "Cannot replace documents after the appointment time")
}

func TestReplaceOnlyOwnDocuments(t *testing.T) {
	f := newFixture(t)
	appt := f.book("10-06-2025", "10:00")
	f.setStatus(appt, models.StatusApproved)
	doc, err := f.documents.Upload(f.ctx, f.doctorUser.ID, appt.ID, upload("report.pdf", pdfBytes))
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.documents.Replace(f.ctx, f.patient.ID, appt.ID, doc.ID, upload("mine.pdf", pdfBytes))
	assertForbidden(t, err, "You can only replace documents you uploaded")
	_, err = f.documents.Replace(f.ctx, f.patient.ID, appt.ID, doc.ID, upload("mine.txt", []byte("plain text")))
	assertForbidden(t, err, "You can only replace documents you uploaded")
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	appt := f.book("10-06-2025", "10:00")
	doc, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("scan.pdf", pdfBytes))
	if err != nil {
		t.Fatal(err)
	}
	other, _ := f.newDoctor("other@example.com", models.DoctorApproved)

	_, err = f.documents.AddComment(f.ctx, f.doctorUser.ID, appt.ID, doc.ID, "   ")
	assertInvalid(t, err)

	_, err = f.documents.AddComment(f.ctx, f.patient.ID, appt.ID, doc.ID, "hi")
	assertForbidden(t, err, "Only doctors can add comments to documents")

	_, err = f.documents.AddComment(f.ctx, other.ID, appt.ID, doc.ID, "hi")
	assertForbidden(t, err, "You can only comment on your assigned appointments")

	c, err := f.documents.AddComment(f.ctx, f.doctorUser.ID, appt.ID, doc.ID, "  looks fine  ")
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "looks fine" {
		t.Errorf("text = %q", c.Text)
	}

	stored, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
	if len(stored.Documents[0].Comments) != 1 {
		t.Errorf("comments = %+v", stored.Documents[0].Comments)
	}
	patient := f.user(f.patient)
	if n := patient.Notifications[len(patient.Notifications)-1]; n.Type != models.NotificationDocumentComment {
		t.Errorf("patient notification = %+v", n)
	}
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture(t)
	appt := f.book("10-06-2025", "10:00")
	other, _ := f.newDoctor("other@example.com", models.DoctorApproved)

	err := f.documents.UpdateNotes(f.ctx, f.patient.ID, appt.ID, "x")
	assertForbidden(t, err, "Only doctors can update appointment notes")

	err = f.documents.UpdateNotes(f.ctx, other.ID, appt.ID, "x")
	assertForbidden(t, err, "You can only update notes for your assigned appointments")

	if err := f.documents.UpdateNotes(f.ctx, f.doctorUser.ID, appt.ID, "Bring previous scans"); err != nil {
		t.Fatal(err)
	}
	list, _ := f.documents.List(f.ctx, f.patient.ID, appt.ID)
	if list.GeneralNotes != "Bring previous scans" {
		t.Errorf("notes = %q", list.GeneralNotes)
	}
}

func TestDeleteDocumentAdminOnly(t *testing.T) {
	f := newFixture(t)
	appt := f.book("10-06-2025", "10:00")
	doc, err := f.documents.Upload(f.ctx, f.patient.ID, appt.ID, upload("scan.pdf", pdfBytes))
	if err != nil {
		t.Fatal(err)
	}

	err = f.documents.Delete(f.ctx, f.patient.ID, appt.ID, doc.ID)
	assertForbidden(t, err, "Only admins can delete documents")

	stored, _ := f.store.Appointments().GetByID(f.ctx, appt.ID)
	path := stored.Documents[0].Filepath

	if err := f.documents.Delete(f.ctx, f.adminUser.ID, appt.ID, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := f.documents.Delete(f.ctx, f.adminUser.ID, appt.ID, doc.ID); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
