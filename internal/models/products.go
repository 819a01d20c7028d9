package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (m *MongoDB) AllProducts(ctx context.Context) ([]*Product, error) {
	var products []*Product
	return products, m.findAll(ctx, m.Products, bson.M{}, &products)
}

func (m *MongoDB) Product(ctx context.Context, id primitive.ObjectID) (*Product, error) {
	var p Product
	if err := m.findOne(ctx, m.Products, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MongoDB) InsertProduct(ctx context.Context, p *Product) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	p.ID = ensureID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := m.Products.InsertOne(ctx, p)
	if err != nil {
		return WriteResult{}, err
	}
	return insertResult(res), nil
}

func (m *MongoDB) UpdateProduct(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (WriteResult, error) {
	set := u.fields()
	if len(set) == 0 {
		// Nothing to write; still report whether the product exists.
		if _, err := m.Product(ctx, id); err != nil {
			return WriteResult{}, err
		}
		return WriteResult{Acknowledged: true, MatchedCount: 1}, nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.Products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return WriteResult{}, err
	}
	return updateResult(res), nil
}

func (m *MongoDB) DeleteProduct(ctx context.Context, id primitive.ObjectID) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.Products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return WriteResult{}, err
	}
	return deleteResult(res), nil
}
