package services

import (
	"context"
	"fmt"
	"time"

	"kpitracker/models"
	repository "kpitracker/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type KPIService interface {
	CreateKPI(ctx context.Context, kpi *models.KPI) (*models.KPI, []models.ValidationIssue, error)
	GetKPIByID(ctx context.Context, id primitive.ObjectID) (*models.KPI, error)
	GetAllKPIs(ctx context.Context) ([]models.KPI, error)
	UpdateKPI(ctx context.Context, id primitive.ObjectID, kpi *models.KPI, force bool) (*models.KPI, []models.ValidationIssue, error)
	SoftDeleteKPI(ctx context.Context, id primitive.ObjectID, updatedBy string) error
}

type kpiService struct {
	repo       repository.KPIRepository
	values     repository.KPIValueRepository
	validation ValidationService
}

func NewKPIService(repo repository.KPIRepository, values repository.KPIValueRepository, validation ValidationService) KPIService {
	return &kpiService{
		repo:       repo,
		values:     values,
		validation: validation,
	}
}

func (s *kpiService) CreateKPI(ctx context.Context, kpi *models.KPI) (*models.KPI, []models.ValidationIssue, error) {
	if issues := s.validation.ValidateKPI(kpi, false, false); hasErrors(issues) {
		return nil, issues, nil
	}

	now := time.Now()
	kpi.Metadata.CreatedAt = now
	kpi.Metadata.UpdatedAt = now
	kpi.IsDeleted = false
	if kpi.DueDate.IsZero() {
		kpi.DueDate = NextDueDate(kpi.Interval, now)
	}

	if err := s.repo.Create(ctx, kpi); err != nil {
		return nil, nil, err
	}

	return kpi, nil, nil
}

func (s *kpiService) GetKPIByID(ctx context.Context, id primitive.ObjectID) (*models.KPI, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *kpiService) GetAllKPIs(ctx context.Context) ([]models.KPI, error) {
	return s.repo.GetAll(ctx)
}

// UpdateKPI merges the provided fields into the stored KPI. Changing the
// interval while values exist only goes through with force set; otherwise
// the warning issue is returned and nothing is written.
func (s *kpiService) UpdateKPI(ctx context.Context, id primitive.ObjectID, kpi *models.KPI, force bool) (*models.KPI, []models.ValidationIssue, error) {
	existingKPI, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	intervalChanged := kpi.Interval != "" && kpi.Interval != existingKPI.Interval
	hasValues := false
	if intervalChanged {
		history, err := s.values.FindAllValues(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		hasValues = len(history) > 0
	}

	if kpi.Name != "" {
		existingKPI.Name = kpi.Name
	}
	if kpi.Description != "" {
		existingKPI.Description = kpi.Description
	}
	if kpi.Unit != "" {
		existingKPI.Unit = kpi.Unit
	}
	if kpi.Target != nil {
		existingKPI.Target = kpi.Target
	}
	if intervalChanged {
		existingKPI.Interval = kpi.Interval
	}
	if !kpi.DueDate.IsZero() {
		existingKPI.DueDate = kpi.DueDate
	}

	issues := s.validation.ValidateKPI(existingKPI, hasValues, intervalChanged)
	if hasErrors(issues) {
		return nil, issues, nil
	}
	if intervalChanged && hasValues && !force {
		return nil, issues, fmt.Errorf("interval change requires force while values exist for KPI %s", id.Hex())
	}

	existingKPI.Metadata.UpdatedBy = kpi.Metadata.UpdatedBy
	existingKPI.Metadata.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, id, existingKPI); err != nil {
		return nil, nil, err
	}

	return existingKPI, issues, nil
}

func (s *kpiService) SoftDeleteKPI(ctx context.Context, id primitive.ObjectID, updatedBy string) error {
	return s.repo.SoftDelete(ctx, id, updatedBy)
}

func hasErrors(issues []models.ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
