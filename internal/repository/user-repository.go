package repository

import (
	"context"
	"errors"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// EnsureIndexes creates the uniqueness constraints the credential store
// relies on: email is the natural key, externalId must map to exactly one
// user when present (sparse so password-only accounts are unconstrained).
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

// activeFilter is applied explicitly by every normal read so soft-deleted
// records stay invisible. Privileged reads use the *Any variants.
func activeFilter(filter bson.M) bson.M {
	filter["active"] = true
	return filter
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	now := time.Now().Unix()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Active = true

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Wrap(apperror.DuplicateKey, "email or external identity already in use", err)
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return r.findOne(ctx, activeFilter(bson.M{"_id": id}))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, activeFilter(bson.M{"email": email}))
}

// FindByEmailAny bypasses the soft-delete filter. Admin and recovery paths
// only.
func (r *UserRepository) FindByEmailAny(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.findOne(ctx, activeFilter(bson.M{"resetToken": hash}))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Update rewrites the whole document by id. The store is last-write-wins on
// a given user; callers re-read before mutating.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Wrap(apperror.DuplicateKey, "email or external identity already in use", err)
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperror.New(apperror.NotFound, "user not found")
	}
	return nil
}

func (r *UserRepository) FindAll(ctx context.Context, page, limit int) ([]*models.User, error) {
	opts := options.Find()
	opts.SetSort(bson.M{"createdAt": -1})
	opts.SetSkip(int64((page - 1) * limit))
	opts.SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
