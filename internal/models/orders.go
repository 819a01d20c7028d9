package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func preparePayment(p *Payment) {
	p.ID = ensureID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = StatusProcessing
	}
}

func (m *MongoDB) RecordPayment(ctx context.Context, p *Payment) (WriteResult, error) {
	ctx, span := tracer.Start(ctx, "models.RecordPayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.product_id", p.ProductID.Hex()),
		attribute.Bool("payment.transactional", m.Transactions),
	)

	preparePayment(p)

	var (
		res WriteResult
		err error
	)
	if m.Transactions {
		res, err = m.recordInTransaction(ctx, p)
	} else {
		res, err = m.recordWithCompensation(ctx, p)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (m *MongoDB) recordInTransaction(ctx context.Context, p *Payment) (WriteResult, error) {
	sess, err := m.Payments.Database().Client().StartSession()
	if err != nil {
		return WriteResult{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var res WriteResult
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		prior, err := m.recorded(sc, p.TransactionID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			*p = *prior
			res = WriteResult{Acknowledged: true, InsertedID: prior.ID}
			return nil, nil
		}

		if _, err := m.Carts.DeleteOne(sc, cartKey(p)); err != nil {
			return nil, fmt.Errorf("clear cart entry: %w", err)
		}
		if err := m.takeStock(sc, p.ProductID); err != nil {
			return nil, err
		}
		ins, err := m.Payments.InsertOne(sc, p)
		if err != nil {
			return nil, insertPaymentError(err)
		}
		res = insertResult(ins)
		return nil, nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return res, nil
}

// recordWithCompensation runs the steps one by one for deployments without
// transactions. A failed payment insert hands the unit of stock back; the cart
// entry is only cleared once the payment exists.
func (m *MongoDB) recordWithCompensation(ctx context.Context, p *Payment) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	prior, err := m.recorded(ctx, p.TransactionID)
	if err != nil {
		return WriteResult{}, err
	}
	if prior != nil {
		*p = *prior
		return WriteResult{Acknowledged: true, InsertedID: prior.ID}, nil
	}

	if err := m.takeStock(ctx, p.ProductID); err != nil {
		return WriteResult{}, err
	}

	ins, err := m.Payments.InsertOne(ctx, p)
	if err != nil {
		err = insertPaymentError(err)
		if rerr := m.restoreStock(ctx, p.ProductID); rerr != nil {
			return WriteResult{}, errors.Join(err, rerr)
		}
		return WriteResult{}, err
	}

	if _, err := m.Carts.DeleteOne(ctx, cartKey(p)); err != nil {
		return insertResult(ins), fmt.Errorf("clear cart entry: %w", err)
	}
	return insertResult(ins), nil
}

func (m *MongoDB) recorded(ctx context.Context, transactionID string) (*Payment, error) {
	if transactionID == "" {
		return nil, nil
	}
	var prior Payment
	err := m.Payments.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up transaction %s: %w", transactionID, err)
	}
	return &prior, nil
}

// takeStock removes one unit of stock, refusing to go below zero.
func (m *MongoDB) takeStock(ctx context.Context, productID primitive.ObjectID) error {
	res, err := m.Products.UpdateOne(ctx,
		bson.M{"_id": productID, "stock": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"stock": -1}},
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := m.Products.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("look up product: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID.Hex(), ErrNotFound)
	}
	return fmt.Errorf("product %s: %w", productID.Hex(), ErrOutOfStock)
}

func (m *MongoDB) restoreStock(ctx context.Context, productID primitive.ObjectID) error {
	ctx, cancel := m.withTimeout(context.WithoutCancel(ctx))
	defer cancel()

	_, err := m.Products.UpdateOne(ctx, bson.M{"_id": productID}, bson.M{"$inc": bson.M{"stock": 1}})
	if err != nil {
		return fmt.Errorf("restore stock for %s: %w", productID.Hex(), err)
	}
	return nil
}

func insertPaymentError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert payment: %w", ErrDuplicate)
	}
	return fmt.Errorf("insert payment: %w", err)
}

func cartKey(p *Payment) bson.M {
	return bson.M{"email": p.Email, "product_id": p.ProductID}
}

func (m *MongoDB) AllPayments(ctx context.Context) ([]*Payment, error) {
	var payments []*Payment
	return payments, m.findAll(ctx, m.Payments, bson.M{}, &payments)
}

func (m *MongoDB) Payment(ctx context.Context, id primitive.ObjectID) (*Payment, error) {
	var p Payment
	if err := m.findOne(ctx, m.Payments, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetStatus overwrites the status with whatever value it is given.
func (m *MongoDB) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.Payments.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return WriteResult{}, err
	}
	return updateResult(res), nil
}

func (m *MongoDB) StatusCounts(ctx context.Context) (*StatusCounts, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := m.Payments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []struct {
		Status bson.RawValue `bson:"_id"`
		Count  int64         `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}

	counts := &StatusCounts{}
	for _, g := range groups {
		status, _ := g.Status.StringValueOK()
		counts.add(status, g.Count)
	}

	if counts.AllPayments, err = m.AllPayments(ctx); err != nil {
		return nil, err
	}
	return counts, nil
}

func (m *MongoDB) VendorTotals(ctx context.Context) (*VendorTotals, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: StatusDelivered}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$paid"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := m.Payments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var delivered []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &delivered); err != nil {
		return nil, err
	}

	totals := &VendorTotals{}
	if len(delivered) > 0 {
		totals.TotalDelivered = decimal.NewFromFloat(delivered[0].Total).Round(2).InexactFloat64()
		totals.TotalDelivery = delivered[0].Count
	}
	if totals.TotalUsers, err = m.Users.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if totals.TotalOrders, err = m.Payments.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	return totals, nil
}
