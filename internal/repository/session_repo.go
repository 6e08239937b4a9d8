package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rewrz/word-soul/internal/model"
)

// SessionRepo handles MongoDB operations for game sessions
type SessionRepo interface {
	Create(ctx context.Context, session *model.GameSession) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.GameSession, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.GameSession, error)
	Update(ctx context.Context, session *model.GameSession) error
	Delete(ctx context.Context, id int64) error
}

type sessionRepo struct {
	collection *mongo.Collection
	seq        Sequence
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database, seq Sequence) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
		seq:        seq,
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.GameSession) (int64, error) {
	id, err := r.seq.Next(ctx, "sessions")
	if err != nil {
		return 0, err
	}
	session.ID = id
	session.LastPlayed = time.Now()

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*model.GameSession, error) {
	var session model.GameSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID int64) ([]*model.GameSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_played", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.GameSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.GameSession) error {
	session.LastPlayed = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
