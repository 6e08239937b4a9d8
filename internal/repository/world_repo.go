package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rewrz/word-soul/internal/model"
)

// WorldRepo handles MongoDB operations for worlds
type WorldRepo interface {
	Create(ctx context.Context, world *model.World) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.World, error)
	Update(ctx context.Context, world *model.World) error
}

type worldRepo struct {
	collection *mongo.Collection
	seq        Sequence
}

// NewWorldRepo creates a new world repository
func NewWorldRepo(db *mongo.Database, seq Sequence) WorldRepo {
	return &worldRepo{
		collection: db.Collection("worlds"),
		seq:        seq,
	}
}

func (r *worldRepo) Create(ctx context.Context, world *model.World) (int64, error) {
	id, err := r.seq.Next(ctx, "worlds")
	if err != nil {
		return 0, err
	}
	world.ID = id
	world.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, world); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *worldRepo) GetByID(ctx context.Context, id int64) (*model.World, error) {
	var world model.World
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&world)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &world, nil
}

func (r *worldRepo) Update(ctx context.Context, world *model.World) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": world.ID}, world)
	return err
}
