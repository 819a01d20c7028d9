package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("trendmart/internal/models")

// MongoDB is the document-store implementation of Store. One handle is built
// at startup and shared by every request.
type MongoDB struct {
	Banners  *mongo.Collection
	Products *mongo.Collection
	Reviews  *mongo.Collection
	Users    *mongo.Collection
	Carts    *mongo.Collection
	Payments *mongo.Collection

	// Timeout bounds every individual database call.
	Timeout time.Duration
	// Transactions selects multi-document transactions for RecordPayment.
	// Requires a replica set or sharded cluster.
	Transactions bool
}

var _ Store = (*MongoDB)(nil)

func NewMongoDB(db *mongo.Database, timeout time.Duration, transactions bool) *MongoDB {
	return &MongoDB{
		Banners:      db.Collection("bannerCollection"),
		Products:     db.Collection("productCollection"),
		Reviews:      db.Collection("reviewCollection"),
		Users:        db.Collection("userCollection"),
		Carts:        db.Collection("cartCollection"),
		Payments:     db.Collection("paymentCollection"),
		Timeout:      timeout,
		Transactions: transactions,
	}
}

func (m *MongoDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.Timeout)
}

// EnsureIndexes creates the indexes the store relies on for uniqueness.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{m.Users, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{m.Carts, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{m.Payments, mongo.IndexModel{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		}},
		{m.Payments, mongo.IndexModel{
			Keys: bson.D{{Key: "status", Value: 1}},
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

func (m *MongoDB) AllBanners(ctx context.Context) ([]*Banner, error) {
	var banners []*Banner
	return banners, m.findAll(ctx, m.Banners, bson.M{}, &banners)
}

func (m *MongoDB) AllReviews(ctx context.Context) ([]*Review, error) {
	var reviews []*Review
	return reviews, m.findAll(ctx, m.Reviews, bson.M{}, &reviews)
}

func (m *MongoDB) InsertReview(ctx context.Context, r *Review) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	r.ID = ensureID(r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := m.Reviews.InsertOne(ctx, r)
	if err != nil {
		return WriteResult{}, err
	}
	return insertResult(res), nil
}

func (m *MongoDB) ReviewsFor(ctx context.Context, itemName string) ([]*Review, error) {
	var reviews []*Review
	return reviews, m.findAll(ctx, m.Reviews, bson.M{"item_name": itemName}, &reviews)
}

func (m *MongoDB) findAll(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func (m *MongoDB) findOne(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func ensureID(id primitive.ObjectID) primitive.ObjectID {
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}

func insertResult(res *mongo.InsertOneResult) WriteResult {
	return WriteResult{Acknowledged: true, InsertedID: res.InsertedID}
}

func updateResult(res *mongo.UpdateResult) WriteResult {
	return WriteResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}
}

func deleteResult(res *mongo.DeleteResult) WriteResult {
	return WriteResult{Acknowledged: true, DeletedCount: res.DeletedCount}
}
