package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"kpitracker/models"
	"kpitracker/utils"

	"github.com/go-playground/validator/v10"
)

const (
	// fuzzyPeriodThreshold is the normalized edit-distance similarity above
	// which two period identifiers count as "possibly the wrong period".
	fuzzyPeriodThreshold = 0.7
	// valueSimilarityTolerance is the relative tolerance for flagging a new
	// value as a near-duplicate of an existing one, independent of period.
	valueSimilarityTolerance = 0.01
)

// OverridePolicy gates overwriting an existing value.
type OverridePolicy struct {
	MaxAgeHours      int     // older values require elevated access
	MaxChangePercent float64 // larger changes require explicit confirmation
}

func DefaultOverridePolicy() OverridePolicy {
	return OverridePolicy{MaxAgeHours: 24, MaxChangePercent: 50}
}

// OverrideAuthorizer is the external authorization collaborator consulted
// for the elevated-access gate.
type OverrideAuthorizer interface {
	HasElevatedAccess(ctx context.Context, userID string) (bool, error)
}

type ValidationService interface {
	ValidateKPI(kpi *models.KPI, hasValues, intervalChanged bool) []models.ValidationIssue
	ValidateValue(value *models.KPIValue) []models.ValidationIssue
	FindDuplicates(candidate *models.KPIValue, existing []models.KPIValue) []models.DuplicateMatch
	CheckOverride(ctx context.Context, existing, replacement *models.KPIValue, actorID string, confirmed bool, now time.Time, policy OverridePolicy) models.OverrideDecision
}

type validationService struct {
	authorizer OverrideAuthorizer
}

func NewValidationService(authorizer OverrideAuthorizer) ValidationService {
	return &validationService{authorizer: authorizer}
}

// negativeTargetKeywords lists name fragments for which a negative target is
// plausible (deltas and profit/loss figures).
var negativeTargetKeywords = []string{
	"change", "delta", "profit", "loss",
	"änderung", "veränderung", "gewinn", "verlust",
}

// ValidateKPI runs the struct tags plus the domain rules. Changing the
// interval while values exist is a warning, not an error.
func (s *validationService) ValidateKPI(kpi *models.KPI, hasValues, intervalChanged bool) []models.ValidationIssue {
	issues := structIssues(kpi)

	if !kpi.Interval.IsValid() {
		issues = append(issues, models.ValidationIssue{
			Field:    "interval",
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("interval must be one of weekly, monthly, quarterly, got %q", kpi.Interval),
		})
	}

	if kpi.Target != nil && *kpi.Target < 0 && !matchesAny(kpi.Name, negativeTargetKeywords) {
		issues = append(issues, models.ValidationIssue{
			Field:    "target",
			Severity: models.SeverityError,
			Message:  "negative target is only plausible for change, delta or profit/loss KPIs",
		})
	}

	if intervalChanged && hasValues {
		issues = append(issues, models.ValidationIssue{
			Field:    "interval",
			Severity: models.SeverityWarning,
			Message:  "changing the interval while values exist leaves old period identifiers behind",
		})
	}

	return issues
}

// ValidateValue checks the structural shape of a measurement. NaN and
// infinities are rejected explicitly since struct tags cannot express that.
func (s *validationService) ValidateValue(value *models.KPIValue) []models.ValidationIssue {
	issues := structIssues(value)

	if math.IsNaN(value.Value) || math.IsInf(value.Value, 0) {
		issues = append(issues, models.ValidationIssue{
			Field:    "value",
			Severity: models.SeverityError,
			Message:  "value must be a finite number",
		})
	}

	return issues
}

// FindDuplicates surfaces exact period duplicates, fuzzy period matches
// (possible wrong period, sorted by similarity descending) and values within
// the relative tolerance of the candidate's magnitude.
func (s *validationService) FindDuplicates(candidate *models.KPIValue, existing []models.KPIValue) []models.DuplicateMatch {
	var exact, fuzzy, similar []models.DuplicateMatch

	for i := range existing {
		other := existing[i]
		if other.ID == candidate.ID {
			continue
		}

		if other.Period == candidate.Period {
			exact = append(exact, models.DuplicateMatch{
				Kind: models.DuplicateExact, Existing: other, Similarity: 1,
			})
			continue
		}

		if sim := periodSimilarity(candidate.Period, other.Period); sim > fuzzyPeriodThreshold {
			fuzzy = append(fuzzy, models.DuplicateMatch{
				Kind: models.DuplicateFuzzy, Existing: other, Similarity: sim,
			})
		}

		tolerance := valueSimilarityTolerance * math.Abs(candidate.Value)
		if math.Abs(other.Value-candidate.Value) <= tolerance {
			similar = append(similar, models.DuplicateMatch{
				Kind: models.DuplicateValue, Existing: other, Similarity: 1,
			})
		}
	}

	sort.SliceStable(fuzzy, func(i, j int) bool {
		return fuzzy[i].Similarity > fuzzy[j].Similarity
	})

	matches := append(exact, fuzzy...)
	return append(matches, similar...)
}

// CheckOverride applies the overwrite policy: same-KPI ownership, the age
// gate (elevated access for values older than the policy window) and the
// magnitude gate (explicit confirmation for large changes). Denials come
// back as reasons, never as errors.
func (s *validationService) CheckOverride(ctx context.Context, existing, replacement *models.KPIValue, actorID string, confirmed bool, now time.Time, policy OverridePolicy) models.OverrideDecision {
	decision := models.OverrideDecision{Allowed: true}

	if existing.KPIID != replacement.KPIID {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, "existing and new value belong to different KPIs")
		return decision
	}

	if policy.MaxAgeHours <= 0 {
		policy.MaxAgeHours = 24
	}
	if policy.MaxChangePercent <= 0 {
		policy.MaxChangePercent = 50
	}

	age := now.Sub(existing.Metadata.CreatedAt)
	if age > time.Duration(policy.MaxAgeHours)*time.Hour {
		decision.RequiresElevation = true
		elevated := false
		if s.authorizer != nil {
			// An authorizer failure counts as not elevated; the caller
			// still gets a reason rather than an error.
			if ok, err := s.authorizer.HasElevatedAccess(ctx, actorID); err == nil {
				elevated = ok
			}
		}
		if !elevated {
			decision.Allowed = false
			decision.Reasons = append(decision.Reasons,
				fmt.Sprintf("value is older than %d hours and requires elevated access", policy.MaxAgeHours))
		}
	}

	if existing.Value != 0 {
		change := math.Abs(replacement.Value-existing.Value) / math.Abs(existing.Value) * 100
		if change > policy.MaxChangePercent {
			decision.RequiresConfirmation = true
			if !confirmed {
				decision.Allowed = false
				decision.Reasons = append(decision.Reasons,
					fmt.Sprintf("change of %.1f%% exceeds %.0f%% and requires confirmation", change, policy.MaxChangePercent))
			}
		}
	}

	return decision
}

func structIssues(v any) []models.ValidationIssue {
	err := utils.Validate.Struct(v)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.ValidationIssue{{Severity: models.SeverityError, Message: err.Error()}}
	}
	issues := make([]models.ValidationIssue, 0, len(validationErrors))
	for _, e := range validationErrors {
		issues = append(issues, models.ValidationIssue{
			Field:    strings.ToLower(e.Field()),
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("failed %q validation", e.Tag()),
		})
	}
	return issues
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// periodSimilarity is 1 minus the Levenshtein distance normalized by the
// longer identifier.
func periodSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
