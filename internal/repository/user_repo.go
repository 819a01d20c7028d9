package repository

import (
	"context"
	"errors"
	"time"

	"trendmart/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository stores principals in MongoDB, one document per email.
type UserRepository struct {
	Collection *mongo.Collection
	Timeout    time.Duration
}

var _ models.PrincipalStore = (*UserRepository)(nil)

func (m *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.Timeout <= 0 {
		return context.WithTimeout(ctx, 5*time.Second)
	}
	return context.WithTimeout(ctx, m.Timeout)
}

// UpsertPrincipal creates the principal on first save and refreshes its
// profile fields afterwards. The role is never written here.
func (m *UserRepository) UpsertPrincipal(ctx context.Context, p *models.Principal) (models.WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"email": p.Email}
	update := bson.M{
		"$set": bson.M{
			"name":      p.Name,
			"photo_url": p.PhotoURL,
		},
	}
	res, err := m.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return models.WriteResult{}, err
	}
	return models.WriteResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func (m *UserRepository) PrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var p models.Principal
	err := m.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *UserRepository) AllPrincipals(ctx context.Context) ([]*models.Principal, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	cur, err := m.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var principals []*models.Principal
	if err := cur.All(ctx, &principals); err != nil {
		return nil, err
	}
	return principals, nil
}

func (m *UserRepository) UpdateRole(ctx context.Context, email string, role models.Role) (models.WriteResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.Collection.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return models.WriteResult{}, err
	}
	return models.WriteResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}
