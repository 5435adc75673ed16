package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"kpitracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCategorizeSkipsWhenValueExists(t *testing.T) {
	now := date(2025, time.February, 14)
	kpi := newTestKPI(models.IntervalMonthly, now.AddDate(0, 0, -5))

	service := NewReminderService(&fakeLookup{}).(*reminderService)
	if r := service.Categorize(kpi, true, now, DefaultReminderConfig()); r != nil {
		t.Fatalf("expected no reminder when a value exists, got %+v", r)
	}
}

func TestCategorizeMutuallyExclusive(t *testing.T) {
	now := date(2025, time.February, 14)
	service := NewReminderService(&fakeLookup{}).(*reminderService)
	cfg := DefaultReminderConfig()

	cases := []struct {
		daysFromNow int
		want        models.ReminderCategory
	}{
		{-10, models.CategoryCritical}, // level 4 tier
		{-5, models.CategoryCritical},  // level 3 tier
		{-2, models.CategoryOverdue},   // level 2 tier
		{0, models.CategoryDueToday},
		{2, models.CategoryUpcoming},
	}
	for _, c := range cases {
		kpi := newTestKPI(models.IntervalMonthly, now.AddDate(0, 0, c.daysFromNow))
		r := service.Categorize(kpi, false, now, cfg)
		if r == nil {
			t.Fatalf("expected a reminder at %d days, got none", c.daysFromNow)
		}
		if r.Category != c.want {
			t.Fatalf("%d days: expected %s, got %s", c.daysFromNow, c.want, r.Category)
		}
	}

	// Far from due: no reminder at all.
	kpi := newTestKPI(models.IntervalMonthly, now.AddDate(0, 0, 10))
	if r := service.Categorize(kpi, false, now, cfg); r != nil {
		t.Fatalf("expected no reminder 10 days out, got %s", r.Category)
	}
}

func TestNotificationLevelLadder(t *testing.T) {
	cases := map[int]models.NotificationLevel{0: 1, 1: 1, 2: 2, 3: 2, 5: 3, 7: 3, 8: 4, 30: 4}
	for days, want := range cases {
		if got := NotificationLevelFor(days); got != want {
			t.Fatalf("%d days overdue: expected level %d, got %d", days, want, got)
		}
	}
}

func TestNotificationLevelRoles(t *testing.T) {
	if roles := models.NotificationLevel(2).Roles(); len(roles) != 1 || roles[0] != models.RoleOwner {
		t.Fatalf("expected owner only at level 2, got %v", roles)
	}
	if roles := models.NotificationLevel(3).Roles(); len(roles) != 2 || roles[1] != models.RoleTeamLead {
		t.Fatalf("expected owner and team lead at level 3, got %v", roles)
	}
	if roles := models.NotificationLevel(4).Roles(); len(roles) != 3 || roles[2] != models.RoleManagement {
		t.Fatalf("expected management at level 4, got %v", roles)
	}
}

func TestUrgencyScoring(t *testing.T) {
	keywords := DefaultReminderConfig().HighImpactKeywords

	// overdue base 50, level 2 multiplier 2.0
	if got := urgencyScore(models.CategoryOverdue, 2, "Support Tickets", keywords); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	// upcoming base 10, level 1 multiplier 1.5
	if got := urgencyScore(models.CategoryUpcoming, 1, "Support Tickets", keywords); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
	// business impact doubles
	if got := urgencyScore(models.CategoryUpcoming, 1, "Monthly Revenue", keywords); got != 30 {
		t.Fatalf("expected 30 with impact multiplier, got %d", got)
	}
}

func TestUrgencyLabels(t *testing.T) {
	cases := map[int]models.UrgencyLabel{
		500: models.UrgencyCritical,
		80:  models.UrgencyCritical,
		45:  models.UrgencyHigh,
		25:  models.UrgencyMedium,
		10:  models.UrgencyLow,
	}
	for score, want := range cases {
		if got := UrgencyLabelFor(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}

func TestBuildBatchQuotaAndOrder(t *testing.T) {
	var reminders []models.Reminder
	add := func(category models.ReminderCategory, urgency int) {
		reminders = append(reminders, models.Reminder{
			KPIID: primitive.NewObjectID(), Category: category, Urgency: urgency,
		})
	}
	add(models.CategoryUpcoming, 15)
	add(models.CategoryUpcoming, 30)
	add(models.CategoryDueToday, 45)
	add(models.CategoryOverdue, 100)
	add(models.CategoryOverdue, 150)
	add(models.CategoryCritical, 500)
	add(models.CategoryCritical, 600)

	batch := BuildBatch(reminders, 5)
	if batch.Total != 5 {
		t.Fatalf("expected total 5 under the cap, got %d", batch.Total)
	}
	if batch.Truncated != 2 {
		t.Fatalf("expected 2 truncated, got %d", batch.Truncated)
	}
	// Buckets fill in iteration order; critical is truncated entirely.
	if len(batch.Upcoming) != 2 || len(batch.DueToday) != 1 || len(batch.Overdue) != 2 {
		t.Fatalf("unexpected bucket sizes: %d/%d/%d", len(batch.Upcoming), len(batch.DueToday), len(batch.Overdue))
	}
	if len(batch.Critical) != 0 {
		t.Fatalf("expected critical bucket truncated, got %d", len(batch.Critical))
	}
	// Within a bucket, urgency sorts descending.
	if batch.Upcoming[0].Urgency != 30 || batch.Overdue[0].Urgency != 150 {
		t.Fatalf("expected urgency-descending buckets, got %d and %d", batch.Upcoming[0].Urgency, batch.Overdue[0].Urgency)
	}
}

func TestAllowedAfterThrottle(t *testing.T) {
	now := time.Date(2025, time.February, 14, 12, 0, 0, 0, time.UTC)

	if AllowedAfter(now.Add(-2*time.Hour), now, DefaultReminderCooldownHours) {
		t.Fatal("expected suppression 2 hours after the last reminder")
	}
	if !AllowedAfter(now.Add(-5*time.Hour), now, DefaultReminderCooldownHours) {
		t.Fatal("expected allowance 5 hours after the last reminder")
	}
	if !AllowedAfter(now.Add(-25*time.Hour), now, EscalationCooldownHours) {
		t.Fatal("expected allowance 25 hours after under the 24h window")
	}
	if AllowedAfter(now.Add(-2*time.Hour), now, EscalationCooldownHours) {
		t.Fatal("expected suppression 2 hours after under the 24h window")
	}
	// Fail open on missing or inconsistent timestamps.
	if !AllowedAfter(time.Time{}, now, DefaultReminderCooldownHours) {
		t.Fatal("expected allowance without a last-sent timestamp")
	}
	if !AllowedAfter(now.Add(time.Hour), now, DefaultReminderCooldownHours) {
		t.Fatal("expected allowance on a clock anomaly")
	}
}

func TestBuildMessageLocalization(t *testing.T) {
	kpi := &models.KPI{
		Name:      "Monthly Revenue",
		OwnerName: models.OwnerName{FirstName: "Anna", LastName: "Schmidt", Title: "Frau"},
	}

	msg := BuildMessage(kpi, models.CategoryOverdue, -4, "", false)
	if !strings.Contains(msg.Body, "Monthly Revenue") || !strings.Contains(msg.Body, "4") {
		t.Fatalf("expected substituted name and days, got %q", msg.Body)
	}
	if !strings.HasPrefix(msg.Body, "Hallo Anna,") {
		t.Fatalf("expected informal German salutation, got %q", msg.Body)
	}
	if len(msg.Actions) == 0 {
		t.Fatalf("expected recommended actions, got none")
	}

	msg = BuildMessage(kpi, models.CategoryOverdue, -4, "en", false)
	if !strings.HasPrefix(msg.Body, "Hi Anna,") {
		t.Fatalf("expected English salutation, got %q", msg.Body)
	}

	msg = BuildMessage(kpi, models.CategoryOverdue, -4, "de", true)
	if !strings.HasPrefix(msg.Body, "Guten Tag Frau Schmidt,") {
		t.Fatalf("expected formal salutation, got %q", msg.Body)
	}
}

func TestEvaluateAllRevenueScenario(t *testing.T) {
	now := date(2025, time.February, 14)
	kpi := models.KPI{
		ID:       primitive.NewObjectID(),
		Name:     "Revenue",
		Interval: models.IntervalMonthly,
		DueDate:  now.AddDate(0, 0, -10),
		OwnerID:  "u1",
	}
	lookup := &fakeLookup{}

	// Status side: 10 days overdue is red with the stronger severity tier.
	status, err := NewStatusService(lookup).EvaluateKPI(context.Background(), &kpi, now, DefaultStatusThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != models.StatusRed {
		t.Fatalf("expected red, got %s", status)
	}
	if severity := OverdueSeverityFor(10, DefaultSeverityLadder, DefaultSeverityTop); severity != 4 {
		t.Fatalf("expected severity 4 at 10 days overdue, got %d", severity)
	}

	// Reminder side: level 4 escalation, critical category, doubled score.
	batch, err := NewReminderService(lookup).EvaluateAll(context.Background(), []models.KPI{kpi}, now, DefaultReminderConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Critical) != 1 {
		t.Fatalf("expected one critical reminder, got %+v", batch)
	}
	reminder := batch.Critical[0]
	if reminder.Level != 4 {
		t.Fatalf("expected level 4, got %d", reminder.Level)
	}
	// base 100 × (1 + 4×0.5) × 2 for the revenue keyword
	if reminder.Urgency != 600 {
		t.Fatalf("expected urgency 600, got %d", reminder.Urgency)
	}
	if reminder.Roles[len(reminder.Roles)-1] != models.RoleManagement {
		t.Fatalf("expected management fan-out, got %v", reminder.Roles)
	}
}
