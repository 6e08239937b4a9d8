package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rewrz/word-soul/internal/model"
)

// SettingRepo handles MongoDB operations for per-user AI configs
type SettingRepo interface {
	Create(ctx context.Context, cfg *model.AIConfig) (int64, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*model.AIConfig, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.AIConfig, error)
	Update(ctx context.Context, cfg *model.AIConfig) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

type settingRepo struct {
	collection *mongo.Collection
	seq        Sequence
}

// NewSettingRepo creates a new AI config repository
func NewSettingRepo(db *mongo.Database, seq Sequence) SettingRepo {
	return &settingRepo{
		collection: db.Collection("settings"),
		seq:        seq,
	}
}

func (r *settingRepo) Create(ctx context.Context, cfg *model.AIConfig) (int64, error) {
	id, err := r.seq.Next(ctx, "settings")
	if err != nil {
		return 0, err
	}
	cfg.ID = id

	if _, err := r.collection.InsertOne(ctx, cfg); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *settingRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*model.AIConfig, error) {
	var cfg model.AIConfig
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *settingRepo) ListByUser(ctx context.Context, userID int64) ([]*model.AIConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "config_name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []*model.AIConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *settingRepo) Update(ctx context.Context, cfg *model.AIConfig) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cfg.ID, "user_id": cfg.UserID}, cfg)
	return err
}

func (r *settingRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
