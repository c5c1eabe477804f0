package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/plantbazaar/backend/models"
)

// ProductRepository is the catalog access the checkout and cancel paths
// need. Stock mutation is conditional at the store level so two
// concurrent checkouts can never both take the last unit.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	// DecrementStock decrements quantity by qty only if quantity >= qty.
	// Returns false (and no error) when stock was insufficient.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	// RestoreStock adds qty back (cancel compensation, checkout rollback).
	RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// MongoProductRepository implements ProductRepository over the products
// collection.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection("products")}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make(map[primitive.ObjectID]models.Product, len(ids))
	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, cursor.Err()
}

func (r *MongoProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"quantity": -qty},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoProductRepository) RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"quantity": qty},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	return err
}
