package repository

import (
	"context"
	"fmt"
	"time"

	"kpitracker/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type KPIRepository interface {
	Create(ctx context.Context, kpi *models.KPI) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.KPI, error)
	GetAll(ctx context.Context) ([]models.KPI, error)
	Update(ctx context.Context, id primitive.ObjectID, kpi *models.KPI) error
	UpdateDueDate(ctx context.Context, id primitive.ObjectID, dueDate time.Time) error
	SoftDelete(ctx context.Context, id primitive.ObjectID, updatedBy string) error
}

type kpiRepository struct {
	collection *mongo.Collection
}

func NewKPIRepository(db *mongo.Database) KPIRepository {
	return &kpiRepository{
		collection: db.Collection("kpis"),
	}
}

func (r *kpiRepository) Create(ctx context.Context, kpi *models.KPI) error {
	kpi.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, kpi)
	return err
}

func (r *kpiRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.KPI, error) {
	var kpi models.KPI
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}).Decode(&kpi)
	if err != nil {
		return nil, err
	}

	return &kpi, nil
}

func (r *kpiRepository) GetAll(ctx context.Context) ([]models.KPI, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"is_deleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var kpis []models.KPI
	if err = cursor.All(ctx, &kpis); err != nil {
		return nil, err
	}

	return kpis, nil
}

func (r *kpiRepository) Update(ctx context.Context, id primitive.ObjectID, kpi *models.KPI) error {
	filter := bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": kpi})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no KPI found with id %s", id.Hex())
	}

	return nil
}

func (r *kpiRepository) UpdateDueDate(ctx context.Context, id primitive.ObjectID, dueDate time.Time) error {
	filter := bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}
	update := bson.M{
		"$set": bson.M{
			"due_date":            dueDate,
			"metadata.updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no KPI found with id %s", id.Hex())
	}

	return nil
}

func (r *kpiRepository) SoftDelete(ctx context.Context, id primitive.ObjectID, updatedBy string) error {
	update := bson.M{
		"$set": bson.M{
			"is_deleted":          true,
			"metadata.updated_at": time.Now(),
			"metadata.updated_by": updatedBy,
		},
	}

	filter := bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no KPI found with id %s or already deleted", id.Hex())
	}

	return nil
}
