package models

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps every collection in process memory. It backs local
// development (STORE_DRIVER=memory) and the HTTP tests. A single mutex
// serialises writers, so RecordPayment is atomic here.
type MemoryStore struct {
	mu         sync.Mutex
	principals []*Principal
	banners    []*Banner
	products   []*Product
	reviews    []*Review
	carts      []*CartItem
	payments   []*Payment
}

var (
	_ Store          = (*MemoryStore)(nil)
	_ PrincipalStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SeedBanners replaces the banner list. Banners have no write route.
func (s *MemoryStore) SeedBanners(banners ...Banner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banners = s.banners[:0]
	for _, b := range banners {
		b.ID = ensureID(b.ID)
		s.banners = append(s.banners, &b)
	}
}

func cloneAll[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		c := *v
		out = append(out, &c)
	}
	return out
}

func filterClone[T any](in []*T, keep func(*T) bool) []*T {
	out := make([]*T, 0)
	for _, v := range in {
		if keep(v) {
			c := *v
			out = append(out, &c)
		}
	}
	return out
}

func find[T any](in []*T, match func(*T) bool) (int, *T) {
	for i, v := range in {
		if match(v) {
			return i, v
		}
	}
	return -1, nil
}

// Principals

func (s *MemoryStore) UpsertPrincipal(_ context.Context, p *Principal) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existing := find(s.principals, func(e *Principal) bool { return e.Email == p.Email })
	if existing == nil {
		c := *p
		c.ID = ensureID(c.ID)
		c.Role = RoleUnset
		s.principals = append(s.principals, &c)
		p.ID = c.ID
		return WriteResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: c.ID}, nil
	}

	modified := int64(0)
	if existing.Name != p.Name || existing.PhotoURL != p.PhotoURL {
		existing.Name = p.Name
		existing.PhotoURL = p.PhotoURL
		modified = 1
	}
	p.ID = existing.ID
	return WriteResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: modified}, nil
}

func (s *MemoryStore) PrincipalByEmail(_ context.Context, email string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.principals, func(e *Principal) bool { return e.Email == email })
	if p == nil {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) AllPrincipals(context.Context) ([]*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.principals), nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, email string, role Role) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.principals, func(e *Principal) bool { return e.Email == email })
	if p == nil {
		return WriteResult{Acknowledged: true}, nil
	}
	res := WriteResult{Acknowledged: true, MatchedCount: 1}
	if p.Role != role {
		p.Role = role
		res.ModifiedCount = 1
	}
	return res, nil
}

// Catalog

func (s *MemoryStore) AllBanners(context.Context) ([]*Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.banners), nil
}

func (s *MemoryStore) AllProducts(context.Context) ([]*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.products), nil
}

func (s *MemoryStore) Product(_ context.Context, id primitive.ObjectID) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.products, func(e *Product) bool { return e.ID == id })
	if p == nil {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) InsertProduct(_ context.Context, p *Product) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = ensureID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, dup := find(s.products, func(e *Product) bool { return e.ID == p.ID }); dup != nil {
		return WriteResult{}, ErrDuplicate
	}
	c := *p
	s.products = append(s.products, &c)
	return WriteResult{Acknowledged: true, InsertedID: p.ID}, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id primitive.ObjectID, u ProductUpdate) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.products, func(e *Product) bool { return e.ID == id })
	if p == nil {
		return WriteResult{Acknowledged: true}, nil
	}
	before := fmt.Sprintf("%+v", *p)
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Images != nil {
		p.Images = append([]string(nil), (*u.Images)...)
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	res := WriteResult{Acknowledged: true, MatchedCount: 1}
	if fmt.Sprintf("%+v", *p) != before {
		res.ModifiedCount = 1
	}
	return res, nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id primitive.ObjectID) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, _ := find(s.products, func(e *Product) bool { return e.ID == id })
	if i < 0 {
		return WriteResult{Acknowledged: true}, nil
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return WriteResult{Acknowledged: true, DeletedCount: 1}, nil
}

// Carts

func (s *MemoryStore) UpsertCartItem(_ context.Context, item *CartItem) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	_, existing := find(s.carts, func(e *CartItem) bool {
		return e.Email == item.Email && e.ProductID == item.ProductID
	})
	if existing == nil {
		c := *item
		c.ID = primitive.NewObjectID()
		s.carts = append(s.carts, &c)
		item.ID = c.ID
		return WriteResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: c.ID}, nil
	}

	id := existing.ID
	*existing = *item
	existing.ID = id
	item.ID = id
	return WriteResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *MemoryStore) CartItems(_ context.Context, email string) ([]*CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterClone(s.carts, func(e *CartItem) bool { return e.Email == email }), nil
}

func (s *MemoryStore) CartItem(_ context.Context, id primitive.ObjectID) (*CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, item := find(s.carts, func(e *CartItem) bool { return e.ID == id })
	if item == nil {
		return nil, ErrNotFound
	}
	c := *item
	return &c, nil
}

func (s *MemoryStore) DeleteCartItem(_ context.Context, id primitive.ObjectID) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, _ := find(s.carts, func(e *CartItem) bool { return e.ID == id })
	if i < 0 {
		return WriteResult{Acknowledged: true}, nil
	}
	s.carts = append(s.carts[:i], s.carts[i+1:]...)
	return WriteResult{Acknowledged: true, DeletedCount: 1}, nil
}

// Reviews

func (s *MemoryStore) AllReviews(context.Context) ([]*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.reviews), nil
}

func (s *MemoryStore) InsertReview(_ context.Context, r *Review) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = ensureID(r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	c := *r
	s.reviews = append(s.reviews, &c)
	return WriteResult{Acknowledged: true, InsertedID: r.ID}, nil
}

func (s *MemoryStore) ReviewsFor(_ context.Context, itemName string) ([]*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterClone(s.reviews, func(e *Review) bool { return e.ItemName == itemName }), nil
}

// Ledger

func (s *MemoryStore) RecordPayment(_ context.Context, p *Payment) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preparePayment(p)

	if p.TransactionID != "" {
		_, prior := find(s.payments, func(e *Payment) bool { return e.TransactionID == p.TransactionID })
		if prior != nil {
			*p = *prior
			return WriteResult{Acknowledged: true, InsertedID: prior.ID}, nil
		}
	}

	_, product := find(s.products, func(e *Product) bool { return e.ID == p.ProductID })
	switch {
	case product == nil:
		return WriteResult{}, fmt.Errorf("product %s: %w", p.ProductID.Hex(), ErrNotFound)
	case product.Stock <= 0:
		return WriteResult{}, fmt.Errorf("product %s: %w", p.ProductID.Hex(), ErrOutOfStock)
	}

	if i, _ := find(s.carts, func(e *CartItem) bool {
		return e.Email == p.Email && e.ProductID == p.ProductID
	}); i >= 0 {
		s.carts = append(s.carts[:i], s.carts[i+1:]...)
	}
	product.Stock--
	c := *p
	s.payments = append(s.payments, &c)
	return WriteResult{Acknowledged: true, InsertedID: p.ID}, nil
}

func (s *MemoryStore) AllPayments(context.Context) ([]*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.payments), nil
}

func (s *MemoryStore) Payment(_ context.Context, id primitive.ObjectID) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.payments, func(e *Payment) bool { return e.ID == id })
	if p == nil {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id primitive.ObjectID, status string) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p := find(s.payments, func(e *Payment) bool { return e.ID == id })
	if p == nil {
		return WriteResult{Acknowledged: true}, nil
	}
	res := WriteResult{Acknowledged: true, MatchedCount: 1}
	if p.Status != status {
		p.Status = status
		res.ModifiedCount = 1
	}
	return res, nil
}

func (s *MemoryStore) StatusCounts(context.Context) (*StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := &StatusCounts{AllPayments: cloneAll(s.payments)}
	for _, p := range s.payments {
		counts.add(p.Status, 1)
	}
	return counts, nil
}

func (s *MemoryStore) VendorTotals(context.Context) (*VendorTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	totals := &VendorTotals{
		TotalUsers:  int64(len(s.principals)),
		TotalOrders: int64(len(s.payments)),
	}
	for _, p := range s.payments {
		if p.Status != StatusDelivered {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(p.Paid))
		totals.TotalDelivery++
	}
	totals.TotalDelivered = sum.Round(2).InexactFloat64()
	return totals, nil
}
