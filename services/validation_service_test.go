package services

import (
	"context"
	"math"
	"testing"
	"time"

	"kpitracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAuthorizer struct {
	elevated bool
}

func (f fakeAuthorizer) HasElevatedAccess(ctx context.Context, userID string) (bool, error) {
	return f.elevated, nil
}

func hasIssueFor(issues []models.ValidationIssue, field string, severity models.IssueSeverity) bool {
	for _, issue := range issues {
		if issue.Field == field && issue.Severity == severity {
			return true
		}
	}
	return false
}

func validKPI() *models.KPI {
	return &models.KPI{
		Name:     "Conversion Rate",
		Interval: models.IntervalMonthly,
		OwnerID:  "u1",
	}
}

func TestValidateKPIStructural(t *testing.T) {
	service := NewValidationService(nil)

	kpi := validKPI()
	if issues := service.ValidateKPI(kpi, false, false); len(issues) != 0 {
		t.Fatalf("expected a valid KPI, got %+v", issues)
	}

	kpi = validKPI()
	kpi.Name = ""
	if issues := service.ValidateKPI(kpi, false, false); !hasIssueFor(issues, "name", models.SeverityError) {
		t.Fatalf("expected a name error, got %+v", issues)
	}

	kpi = validKPI()
	kpi.Interval = "daily"
	if issues := service.ValidateKPI(kpi, false, false); !hasIssueFor(issues, "interval", models.SeverityError) {
		t.Fatalf("expected an interval error, got %+v", issues)
	}

	kpi = validKPI()
	kpi.OwnerID = ""
	if issues := service.ValidateKPI(kpi, false, false); !hasIssueFor(issues, "ownerid", models.SeverityError) {
		t.Fatalf("expected an owner error, got %+v", issues)
	}
}

func TestValidateKPINegativeTarget(t *testing.T) {
	service := NewValidationService(nil)
	target := -5.0

	kpi := validKPI()
	kpi.Target = &target
	if issues := service.ValidateKPI(kpi, false, false); !hasIssueFor(issues, "target", models.SeverityError) {
		t.Fatalf("expected a target error for %q, got %+v", kpi.Name, issues)
	}

	// Delta and profit/loss KPIs may legitimately target negative values.
	for _, name := range []string{"Revenue Change", "Profit Margin Delta", "Net Loss"} {
		kpi := validKPI()
		kpi.Name = name
		kpi.Target = &target
		if issues := service.ValidateKPI(kpi, false, false); hasIssueFor(issues, "target", models.SeverityError) {
			t.Fatalf("expected negative target allowed for %q, got %+v", name, issues)
		}
	}
}

func TestValidateKPIIntervalChangeWarning(t *testing.T) {
	service := NewValidationService(nil)

	issues := service.ValidateKPI(validKPI(), true, true)
	if !hasIssueFor(issues, "interval", models.SeverityWarning) {
		t.Fatalf("expected an interval warning, got %+v", issues)
	}
	// A warning alone never blocks.
	if hasErrors(issues) {
		t.Fatalf("expected no blocking errors, got %+v", issues)
	}
}

func TestValidateValueRejectsNonFinite(t *testing.T) {
	service := NewValidationService(nil)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		value := &models.KPIValue{KPIID: primitive.NewObjectID(), Period: "2025-02", Value: bad}
		if issues := service.ValidateValue(value); !hasIssueFor(issues, "value", models.SeverityError) {
			t.Fatalf("expected a finite-value error for %v, got %+v", bad, issues)
		}
	}

	value := &models.KPIValue{KPIID: primitive.NewObjectID(), Period: "2025-02", Value: 42}
	if issues := service.ValidateValue(value); len(issues) != 0 {
		t.Fatalf("expected a valid value, got %+v", issues)
	}
}

func TestFindDuplicatesExactAndFuzzy(t *testing.T) {
	service := NewValidationService(nil)
	kpiID := primitive.NewObjectID()

	candidate := &models.KPIValue{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-02", Value: 100}
	existing := []models.KPIValue{
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-02", Value: 90},
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-03", Value: 50},
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2019-11", Value: 60},
	}

	matches := service.FindDuplicates(candidate, existing)

	var exact, fuzzy int
	for _, match := range matches {
		switch match.Kind {
		case models.DuplicateExact:
			exact++
			if match.Existing.Period != "2025-02" {
				t.Fatalf("wrong exact match: %+v", match)
			}
		case models.DuplicateFuzzy:
			fuzzy++
			if match.Existing.Period == "2019-11" {
				t.Fatalf("dissimilar period flagged as fuzzy: %+v", match)
			}
			if match.Similarity <= 0.7 {
				t.Fatalf("fuzzy match below threshold: %+v", match)
			}
		}
	}
	if exact != 1 {
		t.Fatalf("expected one exact duplicate, got %d", exact)
	}
	if fuzzy != 1 {
		t.Fatalf("expected one fuzzy duplicate, got %d", fuzzy)
	}
}

func TestFindDuplicatesFuzzySortedDescending(t *testing.T) {
	service := NewValidationService(nil)
	kpiID := primitive.NewObjectID()

	candidate := &models.KPIValue{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-W07", Value: 1000}
	existing := []models.KPIValue{
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2024-W07", Value: 1},
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-W08", Value: 2},
	}

	matches := service.FindDuplicates(candidate, existing)
	var fuzzy []models.DuplicateMatch
	for _, match := range matches {
		if match.Kind == models.DuplicateFuzzy {
			fuzzy = append(fuzzy, match)
		}
	}
	if len(fuzzy) != 2 {
		t.Fatalf("expected two fuzzy matches, got %d", len(fuzzy))
	}
	if fuzzy[0].Similarity < fuzzy[1].Similarity {
		t.Fatalf("expected similarity-descending order, got %v then %v", fuzzy[0].Similarity, fuzzy[1].Similarity)
	}
}

func TestFindDuplicatesSimilarValue(t *testing.T) {
	service := NewValidationService(nil)
	kpiID := primitive.NewObjectID()

	candidate := &models.KPIValue{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2025-05", Value: 1000}
	existing := []models.KPIValue{
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2024-01", Value: 995}, // within 1%
		{ID: primitive.NewObjectID(), KPIID: kpiID, Period: "2023-01", Value: 900}, // outside
	}

	matches := service.FindDuplicates(candidate, existing)
	var similar int
	for _, match := range matches {
		if match.Kind == models.DuplicateValue {
			similar++
			if match.Existing.Value != 995 {
				t.Fatalf("wrong similar-value match: %+v", match)
			}
		}
	}
	if similar != 1 {
		t.Fatalf("expected one similar-value match, got %d", similar)
	}
}

func TestCheckOverrideOwnershipGate(t *testing.T) {
	service := NewValidationService(fakeAuthorizer{elevated: true})
	now := time.Now()

	existing := &models.KPIValue{KPIID: primitive.NewObjectID(), Value: 100}
	replacement := &models.KPIValue{KPIID: primitive.NewObjectID(), Value: 100}

	decision := service.CheckOverride(context.Background(), existing, replacement, "u1", true, now, DefaultOverridePolicy())
	if decision.Allowed {
		t.Fatalf("expected denial across KPIs, got %+v", decision)
	}
}

func TestCheckOverrideAgeGate(t *testing.T) {
	now := time.Now()
	kpiID := primitive.NewObjectID()
	existing := &models.KPIValue{
		KPIID: kpiID, Value: 100,
		Metadata: models.Metadata{CreatedAt: now.Add(-48 * time.Hour)},
	}
	replacement := &models.KPIValue{KPIID: kpiID, Value: 105}

	decision := NewValidationService(fakeAuthorizer{}).CheckOverride(context.Background(), existing, replacement, "u1", false, now, DefaultOverridePolicy())
	if decision.Allowed || !decision.RequiresElevation {
		t.Fatalf("expected denial requiring elevation, got %+v", decision)
	}

	decision = NewValidationService(fakeAuthorizer{elevated: true}).CheckOverride(context.Background(), existing, replacement, "u1", false, now, DefaultOverridePolicy())
	if !decision.Allowed {
		t.Fatalf("expected elevated access to pass the age gate, got %+v", decision)
	}
}

func TestCheckOverrideMagnitudeGate(t *testing.T) {
	now := time.Now()
	kpiID := primitive.NewObjectID()
	existing := &models.KPIValue{
		KPIID: kpiID, Value: 100,
		Metadata: models.Metadata{CreatedAt: now.Add(-time.Hour)},
	}
	replacement := &models.KPIValue{KPIID: kpiID, Value: 300}

	service := NewValidationService(nil)

	decision := service.CheckOverride(context.Background(), existing, replacement, "u1", false, now, DefaultOverridePolicy())
	if decision.Allowed || !decision.RequiresConfirmation {
		t.Fatalf("expected denial requiring confirmation, got %+v", decision)
	}

	decision = service.CheckOverride(context.Background(), existing, replacement, "u1", true, now, DefaultOverridePolicy())
	if !decision.Allowed {
		t.Fatalf("expected confirmed large change to pass, got %+v", decision)
	}

	// Small recent change needs no gate at all.
	replacement = &models.KPIValue{KPIID: kpiID, Value: 101}
	decision = service.CheckOverride(context.Background(), existing, replacement, "u1", false, now, DefaultOverridePolicy())
	if !decision.Allowed || decision.RequiresConfirmation || decision.RequiresElevation {
		t.Fatalf("expected a clean pass, got %+v", decision)
	}
}
