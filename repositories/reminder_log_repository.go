package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderLogRepository tracks when the delivery collaborator last sent a
// reminder per KPI. The engines only read it for anti-spam throttling.
type ReminderLogRepository interface {
	LastSent(ctx context.Context, kpiID primitive.ObjectID) (time.Time, error)
	RecordSent(ctx context.Context, kpiID primitive.ObjectID, at time.Time) error
}

type reminderLogEntry struct {
	KPIID  primitive.ObjectID `bson:"kpi_id"`
	SentAt time.Time          `bson:"sent_at"`
}

type reminderLogRepository struct {
	collection *mongo.Collection
}

func NewReminderLogRepository(db *mongo.Database) ReminderLogRepository {
	return &reminderLogRepository{
		collection: db.Collection("reminder_log"),
	}
}

// LastSent returns the zero time when no reminder was ever sent, which the
// throttle treats as "allowed".
func (r *reminderLogRepository) LastSent(ctx context.Context, kpiID primitive.ObjectID) (time.Time, error) {
	var entry reminderLogEntry
	err := r.collection.FindOne(ctx, bson.M{"kpi_id": kpiID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	return entry.SentAt, nil
}

func (r *reminderLogRepository) RecordSent(ctx context.Context, kpiID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"kpi_id": kpiID}
	update := bson.M{"$set": bson.M{"sent_at": at}}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}
