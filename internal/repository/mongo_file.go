package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mediadepot/api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFileRepository implements domain.FileRepository
type MongoFileRepository struct {
	collection *mongo.Collection
}

func NewMongoFileRepository(db *mongo.Database) *MongoFileRepository {
	coll := db.Collection("files")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// storage_key is unique across the namespace and never reused; sparse
	// because upload-incomplete records have no key yet.
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "storage_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoFileRepository{
		collection: coll,
	}
}

func (r *MongoFileRepository) Create(ctx context.Context, file *domain.StoredFile) error {
	file.CreatedAt = time.Now()
	file.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (r *MongoFileRepository) GetByID(ctx context.Context, id string) (*domain.StoredFile, error) {
	var file domain.StoredFile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&file); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return &file, nil
}

func (r *MongoFileRepository) Update(ctx context.Context, file *domain.StoredFile) error {
	file.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": file.ID}, file)
	if err != nil {
		return fmt.Errorf("failed to update file record: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
