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

// OrderRepository defines the order data access surface. Status writes
// are conditional on the current status so cancel and carrier updates
// apply at most once.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ExistsOrderID(ctx context.Context, orderID string) (bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Order, error)
	// UpdateStatusFrom sets status to next only while the stored status is
	// one of from. Returns false when no document matched.
	UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, next models.OrderStatus) (bool, error)
	SetWaybill(ctx context.Context, id primitive.ObjectID, awb string, courierCharge float64, status models.OrderStatus) error
	// FindTrackable returns orders with a waybill and a non-terminal status.
	FindTrackable(ctx context.Context) ([]models.Order, error)
}

// MongoOrderRepository implements OrderRepository over the orders
// collection.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection("orders")}
}

// EnsureIndexes creates the unique index backing order id collision
// detection.
func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, order)
	return err
}

func (r *MongoOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoOrderRepository) ExistsOrderID(ctx context.Context, orderID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *MongoOrderRepository) UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, next models.OrderStatus) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": next, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoOrderRepository) SetWaybill(ctx context.Context, id primitive.ObjectID, awb string, courierCharge float64, status models.OrderStatus) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"awb_number":     awb,
			"courier_charge": courierCharge,
			"status":         status,
			"updated_at":     time.Now(),
		}},
	)
	return err
}

func (r *MongoOrderRepository) FindTrackable(ctx context.Context) ([]models.Order, error) {
	terminal := []models.OrderStatus{
		models.StatusDelivered,
		models.StatusCancelled,
		models.StatusReturnDelivered,
	}
	cursor, err := r.coll.Find(ctx, bson.M{
		"awb_number": bson.M{"$nin": bson.A{nil, ""}},
		"status":     bson.M{"$nin": terminal},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
