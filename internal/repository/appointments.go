package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

type AppointmentRepository struct {
	coll *mongo.Collection
}

func NewAppointmentRepository(db *mongo.Database) *AppointmentRepository {
	return &AppointmentRepository{coll: db.Collection(appointmentsCollection)}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Documents == nil {
		a.Documents = []models.Document{}
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("finding appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"doctorId": doctorID})
}

func (r *AppointmentRepository) ListByDoctorAndDate(ctx context.Context, doctorID primitive.ObjectID, date string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"doctorId": doctorID, "date": date})
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.AppointmentStatus) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}, models.ErrAppointmentNotFound)
}

func (r *AppointmentRepository) SetAppointmentDateTime(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"appointmentDateTime": at, "updatedAt": time.Now().UTC()}}, models.ErrAppointmentNotFound)
}

func (r *AppointmentRepository) SetGeneralNotes(ctx context.Context, id primitive.ObjectID, notes string) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"generalNotes": notes, "updatedAt": time.Now().UTC()}}, models.ErrAppointmentNotFound)
}

func (r *AppointmentRepository) PushDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) error {
	if doc.Comments == nil {
		doc.Comments = []models.Comment{}
	}
	return r.update(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"documents": doc},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, models.ErrAppointmentNotFound)
}

func (r *AppointmentRepository) ReplaceDocument(ctx context.Context, id primitive.ObjectID, doc models.Document) error {
	return r.update(ctx, bson.M{"_id": id, "documents._id": doc.ID}, bson.M{"$set": bson.M{
		"documents.$.filename":       doc.Filename,
		"documents.$.storedFilename": doc.StoredFilename,
		"documents.$.filepath":       doc.Filepath,
		"documents.$.fileType":       doc.FileType,
		"documents.$.mimeType":       doc.MimeType,
		"documents.$.fileSize":       doc.FileSize,
		"documents.$.uploadedAt":     doc.UploadedAt,
		"documents.$.category":       doc.Category,
		"updatedAt":                  time.Now().UTC(),
	}}, models.ErrDocumentNotFound)
}

func (r *AppointmentRepository) PushComment(ctx context.Context, id, documentID primitive.ObjectID, c models.Comment) error {
	return r.update(ctx, bson.M{"_id": id, "documents._id": documentID}, bson.M{
		"$push": bson.M{"documents.$.comments": c},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, models.ErrDocumentNotFound)
}

func (r *AppointmentRepository) PullDocument(ctx context.Context, id, documentID primitive.ObjectID) error {
	return r.update(ctx, bson.M{"_id": id, "documents._id": documentID}, bson.M{
		"$pull": bson.M{"documents": bson.M{"_id": documentID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, models.ErrDocumentNotFound)
}

func (r *AppointmentRepository) find(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("decoding appointments: %w", err)
	}
	return appointments, nil
}

// update applies a single-document update; notFound is returned when the
// filter matches nothing.
func (r *AppointmentRepository) update(ctx context.Context, filter bson.M, update bson.M, notFound error) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("updating appointment: %w", err)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}
