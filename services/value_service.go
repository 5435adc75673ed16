package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"kpitracker/models"
	repository "kpitracker/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// SubmitResult is the complete outcome of one submission attempt. When
// Stored is false the caller decides what to surface from the issues,
// duplicate matches and override decision.
type SubmitResult struct {
	Value      *models.KPIValue         `json:"value,omitempty"`
	Issues     []models.ValidationIssue `json:"issues,omitempty"`
	Duplicates []models.DuplicateMatch  `json:"duplicates,omitempty"`
	Override   *models.OverrideDecision `json:"override,omitempty"`
	Stored     bool                     `json:"stored"`
}

type ValueService interface {
	SubmitValue(ctx context.Context, value *models.KPIValue, actorID string, confirmed bool) (*SubmitResult, error)
	GetHistory(ctx context.Context, kpiID primitive.ObjectID) ([]models.KPIValue, error)
	// Evidence file methods
	UploadEvidence(ctx context.Context, valueID primitive.ObjectID, filename string, fileData io.Reader, updatedBy string, contentType string) (*models.Attachment, error)
	DownloadEvidence(ctx context.Context, fileID primitive.ObjectID) (*gridfs.DownloadStream, error)
	DeleteEvidence(ctx context.Context, valueID, fileID primitive.ObjectID, updatedBy string) error
}

type valueService struct {
	kpis       repository.KPIRepository
	values     repository.KPIValueRepository
	validation ValidationService
	policy     OverridePolicy
}

func NewValueService(kpis repository.KPIRepository, values repository.KPIValueRepository, validation ValidationService) ValueService {
	return &valueService{
		kpis:       kpis,
		values:     values,
		validation: validation,
		policy:     DefaultOverridePolicy(),
	}
}

// SubmitValue gates a measurement through validation, duplicate detection
// and, when it would overwrite the period's existing value, the override
// policy. On success the KPI's due date rolls forward to the next period.
func (s *valueService) SubmitValue(ctx context.Context, value *models.KPIValue, actorID string, confirmed bool) (*SubmitResult, error) {
	result := &SubmitResult{}

	result.Issues = s.validation.ValidateValue(value)
	if hasErrors(result.Issues) {
		return result, nil
	}

	kpi, err := s.kpis.GetByID(ctx, value.KPIID)
	if err != nil {
		return nil, fmt.Errorf("KPI not found: %v", err)
	}

	history, err := s.values.FindAllValues(ctx, value.KPIID)
	if err != nil {
		return nil, err
	}

	result.Duplicates = s.validation.FindDuplicates(value, history)

	var existing *models.KPIValue
	for i := range history {
		if history[i].Period == value.Period {
			existing = &history[i]
			break
		}
	}

	now := time.Now()
	if existing != nil {
		decision := s.validation.CheckOverride(ctx, existing, value, actorID, confirmed, now, s.policy)
		result.Override = &decision
		if !decision.Allowed {
			return result, nil
		}

		// Overwrite keeps the original creation timestamp as the audit
		// trail and records who replaced the value.
		value.ID = existing.ID
		value.Evidence = existing.Evidence
		value.Metadata.CreatedBy = existing.Metadata.CreatedBy
		value.Metadata.CreatedAt = existing.Metadata.CreatedAt
		value.Metadata.UpdatedBy = actorID
		value.Metadata.UpdatedAt = now
		if err := s.values.Update(ctx, existing.ID, value); err != nil {
			return nil, err
		}
	} else {
		value.Metadata.CreatedBy = actorID
		value.Metadata.UpdatedBy = actorID
		value.Metadata.CreatedAt = now
		value.Metadata.UpdatedAt = now
		if value.Evidence == nil {
			value.Evidence = []models.Attachment{}
		}
		if err := s.values.Create(ctx, value); err != nil {
			return nil, err
		}
	}

	if err := s.kpis.UpdateDueDate(ctx, kpi.ID, NextDueDate(kpi.Interval, now)); err != nil {
		fmt.Printf("Failed to roll due date for KPI %s: %v\n", kpi.ID.Hex(), err)
	}

	result.Value = value
	result.Stored = true
	return result, nil
}

func (s *valueService) GetHistory(ctx context.Context, kpiID primitive.ObjectID) ([]models.KPIValue, error) {
	return s.values.FindAllValues(ctx, kpiID)
}

func (s *valueService) UploadEvidence(ctx context.Context, valueID primitive.ObjectID, filename string, fileData io.Reader, updatedBy string, contentType string) (*models.Attachment, error) {
	// First: Verify that the value exists
	if _, err := s.values.GetByID(ctx, valueID); err != nil {
		return nil, fmt.Errorf("value not found: %v", err)
	}

	// Second: Upload file to GridFS
	fileID, err := s.values.UploadFile(ctx, filename, fileData, updatedBy, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %v", err)
	}

	attachment := models.Attachment{
		FileID:   fileID,
		Filename: filename,
	}

	// Third: Attach file record to the value
	if err := s.values.AddEvidence(ctx, valueID, attachment, updatedBy); err != nil {
		// CLEANUP: Delete the uploaded file since attaching failed
		if cleanupErr := s.values.DeleteFile(context.Background(), fileID); cleanupErr != nil {
			fmt.Printf("Failed to cleanup uploaded file %s: %v\n", fileID.Hex(), cleanupErr)
		}
		return nil, fmt.Errorf("failed to attach evidence to value: %v", err)
	}

	return &attachment, nil
}

func (s *valueService) DownloadEvidence(ctx context.Context, fileID primitive.ObjectID) (*gridfs.DownloadStream, error) {
	return s.values.DownloadFile(ctx, fileID)
}

func (s *valueService) DeleteEvidence(ctx context.Context, valueID, fileID primitive.ObjectID, updatedBy string) error {
	value, err := s.values.GetByID(ctx, valueID)
	if err != nil {
		return fmt.Errorf("value not found: %v", err)
	}

	var attachmentExists bool
	var attachmentFilename string
	for _, attachment := range value.Evidence {
		if attachment.FileID == fileID {
			attachmentExists = true
			attachmentFilename = attachment.Filename
			break
		}
	}

	if !attachmentExists {
		return fmt.Errorf("evidence with file_id %s not found on value %s", fileID.Hex(), valueID.Hex())
	}

	// Remove the evidence record first, then the file itself.
	if err := s.values.RemoveEvidence(ctx, valueID, fileID, updatedBy); err != nil {
		return fmt.Errorf("failed to remove evidence from value: %v", err)
	}

	if err := s.values.DeleteFile(ctx, fileID); err != nil {
		// ROLLBACK: Re-attach the record since file deletion failed
		attachment := models.Attachment{
			FileID:   fileID,
			Filename: attachmentFilename,
		}
		if rollbackErr := s.values.AddEvidence(ctx, valueID, attachment, updatedBy); rollbackErr != nil {
			return fmt.Errorf("failed to delete file from GridFS and rollback failed: %v (original error: %v)", rollbackErr, err)
		}
		return fmt.Errorf("failed to delete file from GridFS: %v", err)
	}

	return nil
}
