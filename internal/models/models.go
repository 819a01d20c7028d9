package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound   = errors.New("models: no matching record found")
	ErrOutOfStock = errors.New("models: product is out of stock")
	ErrDuplicate  = errors.New("models: duplicate record")
)

// Role is the privilege level stored on a principal. The zero value means no
// role has been assigned.
type Role string

const (
	RoleUnset  Role = ""
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a submitted role string onto the closed set of roles,
// ignoring case and surrounding space. Anything unrecognised is RoleUnset.
func ParseRole(s string) Role {
	return StoredRole(strings.ToLower(strings.TrimSpace(s)))
}

// StoredRole maps a role read back from the store. Only an exact match of one
// of the known roles counts; anything else is RoleUnset.
func StoredRole(s string) Role {
	switch r := Role(s); r {
	case RoleUser, RoleVendor, RoleAdmin:
		return r
	default:
		return RoleUnset
	}
}

func (r Role) Valid() bool {
	return StoredRole(string(r)) != RoleUnset
}

// Known order statuses. The status field itself is free-form; these are the
// values the dashboard counts.
const (
	StatusProcessing = "processing"
	StatusShipping   = "shipping"
	StatusDelivered  = "delivered"
)

type Principal struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email    string             `bson:"email" json:"email" validate:"required,email"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`
	PhotoURL string             `bson:"photo_url,omitempty" json:"photoURL,omitempty" validate:"omitempty,url"`
	Role     Role               `bson:"role,omitempty" json:"role,omitempty"`
}

type Banner struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title    string             `bson:"title" json:"title"`
	Subtitle string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	ImageURL string             `bson:"image_url" json:"imageURL"`
	Link     string             `bson:"link,omitempty" json:"link,omitempty"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price" validate:"gte=0"`
	Stock       int                `bson:"stock" json:"stock" validate:"gte=0"`
	Images      []string           `bson:"images,omitempty" json:"images,omitempty"`
	Featured    bool               `bson:"featured" json:"featured"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// ProductUpdate carries the fields of a partial product update. Nil fields are
// left untouched.
type ProductUpdate struct {
	Name        *string   `json:"name" validate:"omitempty,min=1"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Images      *[]string `json:"images"`
	Featured    *bool     `json:"featured"`
}

func (u ProductUpdate) fields() map[string]any {
	set := map[string]any{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	if u.Featured != nil {
		set["featured"] = *u.Featured
	}
	return set
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ItemName  string             `bson:"item_name" json:"item_name" validate:"required"`
	Email     string             `bson:"email" json:"email" validate:"required,email"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Rating    int                `bson:"rating" json:"rating" validate:"min=1,max=5"`
	Comment   string             `bson:"comment" json:"comment" validate:"required"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// CartItem is keyed by (Email, ProductID): a buyer holds at most one entry per
// product.
type CartItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email       string             `bson:"email" json:"email" validate:"required,email"`
	ProductID   primitive.ObjectID `bson:"product_id" json:"productId"`
	ProductName string             `bson:"product_name" json:"productName"`
	Price       float64            `bson:"price" json:"price" validate:"gte=0"`
	Quantity    int                `bson:"quantity" json:"quantity" validate:"gte=0"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	AddedAt     time.Time          `bson:"added_at" json:"addedAt"`
}

// Payment is the order record written at checkout. Status is the only field
// changed after it is created.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email         string             `bson:"email" json:"email" validate:"required,email"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	ProductID     primitive.ObjectID `bson:"product_id" json:"productId"`
	ProductName   string             `bson:"product_name" json:"productName"`
	Paid          float64            `bson:"paid" json:"paid" validate:"gte=0"`
	TransactionID string             `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

type StatusCounts struct {
	Processing  int64      `json:"processing"`
	Shipping    int64      `json:"shipping"`
	Delivered   int64      `json:"delivered"`
	Total       int64      `json:"total"`
	AllPayments []*Payment `json:"allPayments"`
}

func (c *StatusCounts) add(status string, n int64) {
	switch status {
	case StatusProcessing:
		c.Processing += n
	case StatusShipping:
		c.Shipping += n
	case StatusDelivered:
		c.Delivered += n
	}
	c.Total += n
}

type VendorTotals struct {
	TotalDelivered float64 `json:"totalDelivered"`
	TotalUsers     int64   `json:"totalUsers"`
	TotalOrders    int64   `json:"totalOrders"`
	TotalDelivery  int64   `json:"totalDelivery"`
}

// WriteResult mirrors the acknowledgement documents the storefront client
// already understands.
type WriteResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	InsertedID    any   `json:"insertedId,omitempty"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
	UpsertedID    any   `json:"upsertedId,omitempty"`
	DeletedCount  int64 `json:"deletedCount"`
}
