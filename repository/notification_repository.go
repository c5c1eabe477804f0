package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plantbazaar/backend/models"
)

// NotificationRepository is append-only apart from the read flag.
type NotificationRepository interface {
	Save(ctx context.Context, n *models.Notification) error
	FindByUserID(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}

type MongoNotificationRepository struct {
	coll *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{coll: db.Collection("notifications")}
}

func (r *MongoNotificationRepository) Save(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

func (r *MongoNotificationRepository) FindByUserID(ctx context.Context, userID string) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}
