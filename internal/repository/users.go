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

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Notifications == nil {
		u.Notifications = []models.Notification{}
	}
	if u.SeenNotifications == nil {
		u.SeenNotifications = []models.Notification{}
	}

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindAdmin is only used to resolve the admin once at startup.
func (r *UserRepository) FindAdmin(ctx context.Context) (*models.User, error) {
	return r.findOne(ctx, bson.M{"isAdmin": true})
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time, firstName string) error {
	set := bson.M{"emailOTP": otp, "emailOTPExpiry": expiry, "updatedAt": time.Now().UTC()}
	if firstName != "" {
		set["firstName"] = firstName
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *UserRepository) CompleteRegistration(ctx context.Context, id primitive.ObjectID, reg models.Registration) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"firstName":     reg.FirstName,
			"lastName":      reg.LastName,
			"name":          reg.FirstName + " " + reg.LastName,
			"mobileNumber":  reg.MobileNumber,
			"password":      reg.PasswordHash,
			"address":       reg.Address,
			"dateOfBirth":   reg.DateOfBirth,
			"emailVerified": true,
			"updatedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{"emailOTP": "", "emailOTPExpiry": ""},
	})
}

func (r *UserRepository) SetDoctorFlag(ctx context.Context, id primitive.ObjectID, isDoctor bool) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"isDoctor": isDoctor, "updatedAt": time.Now().UTC()}})
}

func (r *UserRepository) AppendNotification(ctx context.Context, id primitive.ObjectID, n models.Notification) error {
	return r.updateOne(ctx, id, bson.M{
		"$push": bson.M{"notification": n},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

// MarkAllNotificationsSeen moves every unseen entry to the end of the seen
// list in a single pipeline update.
func (r *UserRepository) MarkAllNotificationsSeen(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "seenNotification", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$seenNotification", bson.A{}}}},
				bson.D{{Key: "$ifNull", Value: bson.A{"$notification", bson.A{}}}},
			}}}},
			{Key: "notification", Value: bson.D{{Key: "$literal", Value: bson.A{}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	return r.findOneAndUpdate(ctx, id, pipeline)
}

func (r *UserRepository) ClearNotifications(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"notification":     bson.A{},
		"seenNotification": bson.A{},
		"updatedAt":        time.Now().UTC(),
	}})
}

// SetPushSubscription stores sub, or removes the stored subscription when sub is nil.
func (r *UserRepository) SetPushSubscription(ctx context.Context, id primitive.ObjectID, sub *models.PushSubscription) error {
	update := bson.M{"$set": bson.M{"pushSubscription": sub, "updatedAt": time.Now().UTC()}}
	if sub == nil {
		update = bson.M{
			"$unset": bson.M{"pushSubscription": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
		}
	}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update any) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update any) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("updating user %s: %w", id.Hex(), err)
	}
	return &u, nil
}
