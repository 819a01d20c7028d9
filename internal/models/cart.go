package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertCartItem writes the buyer's entry for a product, replacing whatever
// entry that buyer already had for it.
func (m *MongoDB) UpsertCartItem(ctx context.Context, item *CartItem) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	filter := bson.M{"email": item.Email, "product_id": item.ProductID}
	update := bson.M{
		"$set": bson.M{
			"product_name": item.ProductName,
			"price":        item.Price,
			"quantity":     item.Quantity,
			"image":        item.Image,
			"added_at":     item.AddedAt,
		},
	}
	res, err := m.Carts.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return WriteResult{}, err
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		item.ID = oid
	}
	return updateResult(res), nil
}

func (m *MongoDB) CartItems(ctx context.Context, email string) ([]*CartItem, error) {
	var items []*CartItem
	return items, m.findAll(ctx, m.Carts, bson.M{"email": email}, &items)
}

func (m *MongoDB) CartItem(ctx context.Context, id primitive.ObjectID) (*CartItem, error) {
	var item CartItem
	if err := m.findOne(ctx, m.Carts, bson.M{"_id": id}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MongoDB) DeleteCartItem(ctx context.Context, id primitive.ObjectID) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.Carts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return WriteResult{}, err
	}
	return deleteResult(res), nil
}
