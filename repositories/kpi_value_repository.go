package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"kpitracker/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KPIValueRepository persists measurements and their evidence files. Its
// FindValue/FindAllValues methods are the read contract the engines consume.
type KPIValueRepository interface {
	Create(ctx context.Context, value *models.KPIValue) error
	Update(ctx context.Context, id primitive.ObjectID, value *models.KPIValue) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.KPIValue, error)
	FindValue(ctx context.Context, kpiID primitive.ObjectID, period string) (*models.KPIValue, error)
	FindAllValues(ctx context.Context, kpiID primitive.ObjectID) ([]models.KPIValue, error)
	// GridFS methods
	UploadFile(ctx context.Context, filename string, fileData io.Reader, uploadedBy string, contentType string) (primitive.ObjectID, error)
	DownloadFile(ctx context.Context, fileID primitive.ObjectID) (*gridfs.DownloadStream, error)
	DeleteFile(ctx context.Context, fileID primitive.ObjectID) error
	// Evidence methods
	AddEvidence(ctx context.Context, valueID primitive.ObjectID, attachment models.Attachment, updatedBy string) error
	RemoveEvidence(ctx context.Context, valueID primitive.ObjectID, fileID primitive.ObjectID, updatedBy string) error
}

type kpiValueRepository struct {
	collection *mongo.Collection
	bucket     *gridfs.Bucket
}

func NewKPIValueRepository(db *mongo.Database) KPIValueRepository {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		panic(fmt.Sprintf("Failed to create GridFS bucket: %v", err))
	}

	return &kpiValueRepository{
		collection: db.Collection("kpi_values"),
		bucket:     bucket,
	}
}

func (r *kpiValueRepository) Create(ctx context.Context, value *models.KPIValue) error {
	value.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, value)
	return err
}

func (r *kpiValueRepository) Update(ctx context.Context, id primitive.ObjectID, value *models.KPIValue) error {
	filter := bson.M{"_id": id}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": value})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no value found with id %s", id.Hex())
	}

	return nil
}

func (r *kpiValueRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.KPIValue, error) {
	var value models.KPIValue
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&value)
	if err != nil {
		return nil, err
	}

	return &value, nil
}

// FindValue returns (nil, nil) when no measurement exists for the period, so
// the engines can branch on absence without error handling.
func (r *kpiValueRepository) FindValue(ctx context.Context, kpiID primitive.ObjectID, period string) (*models.KPIValue, error) {
	var value models.KPIValue
	err := r.collection.FindOne(ctx, bson.M{"kpi_id": kpiID, "period": period}).Decode(&value)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &value, nil
}

// FindAllValues returns the full history for a KPI, newest first.
func (r *kpiValueRepository) FindAllValues(ctx context.Context, kpiID primitive.ObjectID) ([]models.KPIValue, error) {
	opts := options.Find().SetSort(bson.D{{Key: "metadata.created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"kpi_id": kpiID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var values []models.KPIValue
	if err = cursor.All(ctx, &values); err != nil {
		return nil, err
	}

	return values, nil
}

// GridFS methods
func (r *kpiValueRepository) UploadFile(ctx context.Context, filename string, fileData io.Reader, uploadedBy string, contentType string) (primitive.ObjectID, error) {
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"uploadedBy":  uploadedBy,
		"uploadedAt":  time.Now(),
		"contentType": contentType,
	})

	fileID, err := r.bucket.UploadFromStream(filename, fileData, uploadOpts)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to upload file to GridFS: %v", err)
	}

	return fileID, nil
}

func (r *kpiValueRepository) DownloadFile(ctx context.Context, fileID primitive.ObjectID) (*gridfs.DownloadStream, error) {
	downloadStream, err := r.bucket.OpenDownloadStream(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from GridFS: %v", err)
	}

	return downloadStream, nil
}

func (r *kpiValueRepository) DeleteFile(ctx context.Context, fileID primitive.ObjectID) error {
	return r.bucket.Delete(fileID)
}

func (r *kpiValueRepository) AddEvidence(ctx context.Context, valueID primitive.ObjectID, attachment models.Attachment, updatedBy string) error {
	filter := bson.M{"_id": valueID}
	update := bson.M{
		"$push": bson.M{
			"evidence": attachment,
		},
		"$set": bson.M{
			"metadata.updated_at": time.Now(),
			"metadata.updated_by": updatedBy,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no value found with id %s", valueID.Hex())
	}

	return nil
}

func (r *kpiValueRepository) RemoveEvidence(ctx context.Context, valueID primitive.ObjectID, fileID primitive.ObjectID, updatedBy string) error {
	filter := bson.M{"_id": valueID}
	update := bson.M{
		"$pull": bson.M{
			"evidence": bson.M{"file_id": fileID},
		},
		"$set": bson.M{
			"metadata.updated_at": time.Now(),
			"metadata.updated_by": updatedBy,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("no value found with id %s", valueID.Hex())
	}

	return nil
}
