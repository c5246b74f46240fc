package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnhub-server/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ProfileRepository struct {
	collection *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		collection: db.Collection("profiles"),
	}
}

func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert creates the profile on first write and merges non-empty fields on
// subsequent writes.
func (r *ProfileRepository) Upsert(ctx context.Context, userID string, fields models.ProfileFields) (*models.Profile, error) {
	now := time.Now().Unix()

	set := bson.M{"updatedAt": now}
	for key, value := range map[string]string{
		"gender":       fields.Gender,
		"dateOfBirth":  fields.DateOfBirth,
		"profileType":  fields.ProfileType,
		"class":        fields.Class,
		"syllabus":     fields.Syllabus,
		"school":       fields.School,
		"bio":          fields.Bio,
		"profileImage": fields.ProfileImage,
	} {
		if value != "" {
			set[key] = value
		}
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"userId": userID, "createdAt": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var profile models.Profile
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return &profile, nil
}
