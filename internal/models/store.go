package models

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrincipalStore holds user accounts keyed by email.
type PrincipalStore interface {
	UpsertPrincipal(ctx context.Context, p *Principal) (WriteResult, error)
	PrincipalByEmail(ctx context.Context, email string) (*Principal, error)
	AllPrincipals(ctx context.Context) ([]*Principal, error)
	UpdateRole(ctx context.Context, email string, role Role) (WriteResult, error)
}

type Catalog interface {
	AllBanners(ctx context.Context) ([]*Banner, error)
	AllProducts(ctx context.Context) ([]*Product, error)
	Product(ctx context.Context, id primitive.ObjectID) (*Product, error)
	InsertProduct(ctx context.Context, p *Product) (WriteResult, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (WriteResult, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) (WriteResult, error)
}

type Carts interface {
	UpsertCartItem(ctx context.Context, item *CartItem) (WriteResult, error)
	CartItems(ctx context.Context, email string) ([]*CartItem, error)
	CartItem(ctx context.Context, id primitive.ObjectID) (*CartItem, error)
	DeleteCartItem(ctx context.Context, id primitive.ObjectID) (WriteResult, error)
}

type Reviews interface {
	AllReviews(ctx context.Context) ([]*Review, error)
	InsertReview(ctx context.Context, r *Review) (WriteResult, error)
	ReviewsFor(ctx context.Context, itemName string) ([]*Review, error)
}

// Ledger is the order/payment side of the store.
type Ledger interface {
	// RecordPayment clears the buyer's cart entry for the product, takes one
	// unit of stock and inserts the payment as a single unit of work. A
	// payment whose TransactionID was already recorded is returned as is.
	RecordPayment(ctx context.Context, p *Payment) (WriteResult, error)
	AllPayments(ctx context.Context) ([]*Payment, error)
	Payment(ctx context.Context, id primitive.ObjectID) (*Payment, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) (WriteResult, error)
	StatusCounts(ctx context.Context) (*StatusCounts, error)
	VendorTotals(ctx context.Context) (*VendorTotals, error)
}

type Store interface {
	Catalog
	Carts
	Reviews
	Ledger
}
