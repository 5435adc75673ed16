package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"kpitracker/models"
)

const (
	// DefaultReminderCooldownHours is the anti-spam minimum between two
	// reminders for the same KPI in the regular evaluation pass.
	DefaultReminderCooldownHours = 4
	// EscalationCooldownHours applies to the admin escalation mail path,
	// which deliberately uses a longer window than the regular pass.
	EscalationCooldownHours = 24

	// DefaultDailySendCap is the global reminder quota per evaluation pass.
	DefaultDailySendCap = 5
)

// ReminderConfig tunes one evaluation pass.
type ReminderConfig struct {
	WarningDays        int
	DailySendCap       int
	HighImpactKeywords []string
	Language           string
	Formal             bool
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		WarningDays:  3,
		DailySendCap: DefaultDailySendCap,
		HighImpactKeywords: []string{
			"revenue", "umsatz", "profit", "gewinn", "cost", "kosten",
			"customer", "kunde", "churn",
		},
		Language: "de",
	}
}

type ReminderService interface {
	Categorize(kpi *models.KPI, hasValue bool, now time.Time, cfg ReminderConfig) *models.Reminder
	EvaluateAll(ctx context.Context, kpis []models.KPI, now time.Time, cfg ReminderConfig) (models.ReminderBatch, error)
}

type reminderService struct {
	values ValueLookup
}

func NewReminderService(values ValueLookup) ReminderService {
	return &reminderService{values: values}
}

var urgencyBase = map[models.ReminderCategory]float64{
	models.CategoryCritical: 100,
	models.CategoryOverdue:  50,
	models.CategoryDueToday: 30,
	models.CategoryUpcoming: 10,
}

// NotificationLevelFor maps days overdue onto the reminder escalation
// ladder. It is a different scale from the status engine's OverdueSeverity.
func NotificationLevelFor(daysOverdue int) models.NotificationLevel {
	switch {
	case daysOverdue <= 1:
		return 1
	case daysOverdue <= 3:
		return 2
	case daysOverdue <= 7:
		return 3
	}
	return 4
}

// Categorize decides whether and how a single KPI is reminded. A KPI with a
// value for the current period produces no reminder at all. Categories are
// mutually exclusive per pass.
func (s *reminderService) Categorize(kpi *models.KPI, hasValue bool, now time.Time, cfg ReminderConfig) *models.Reminder {
	if hasValue {
		return nil
	}
	if cfg.WarningDays <= 0 {
		cfg.WarningDays = 3
	}

	daysDiff := DaysUntil(now, DueDateFor(kpi, now))

	reminder := models.Reminder{
		KPIID:        kpi.ID,
		KPIName:      kpi.Name,
		OwnerID:      kpi.OwnerID,
		DaysUntilDue: daysDiff,
		Level:        1,
	}

	switch {
	case daysDiff < 0:
		reminder.Category = models.CategoryOverdue
		reminder.DaysOverdue = -daysDiff
		reminder.Level = NotificationLevelFor(reminder.DaysOverdue)
		// The top ladder tiers are surfaced as critical before grouping.
		if reminder.Level >= 3 {
			reminder.Category = models.CategoryCritical
		}
	case daysDiff == 0:
		reminder.Category = models.CategoryDueToday
	case daysDiff <= cfg.WarningDays:
		reminder.Category = models.CategoryUpcoming
	default:
		return nil
	}

	reminder.Urgency = urgencyScore(reminder.Category, reminder.Level, kpi.Name, cfg.HighImpactKeywords)
	reminder.UrgencyLabel = UrgencyLabelFor(reminder.Urgency)
	reminder.Roles = reminder.Level.Roles()
	reminder.Message = BuildMessage(kpi, reminder.Category, daysDiff, cfg.Language, cfg.Formal)
	return &reminder
}

// EvaluateAll runs one full pass: categorize every KPI, then group, sort and
// quota-truncate. The value-lookup cache is scoped to this call.
func (s *reminderService) EvaluateAll(ctx context.Context, kpis []models.KPI, now time.Time, cfg ReminderConfig) (models.ReminderBatch, error) {
	cache := make(map[string]bool, len(kpis))
	var reminders []models.Reminder
	for i := range kpis {
		kpi := &kpis[i]
		period := CurrentPeriod(kpi.Interval, now)
		key := kpi.ID.Hex() + "/" + period
		hasValue, ok := cache[key]
		if !ok {
			value, err := s.values.FindValue(ctx, kpi.ID, period)
			if err != nil {
				return models.ReminderBatch{}, err
			}
			hasValue = value != nil
			cache[key] = hasValue
		}
		if r := s.Categorize(kpi, hasValue, now, cfg); r != nil {
			reminders = append(reminders, *r)
		}
	}
	return BuildBatch(reminders, cfg.DailySendCap), nil
}

// BuildBatch buckets reminders by category, orders each bucket by urgency
// descending and applies the global send cap across buckets in the fixed
// order upcoming, due_today, overdue, critical. Later buckets are truncated
// entirely once the cap is reached, so the output is reproducible.
func BuildBatch(reminders []models.Reminder, sendCap int) models.ReminderBatch {
	if sendCap <= 0 {
		sendCap = DefaultDailySendCap
	}

	buckets := map[models.ReminderCategory][]models.Reminder{}
	for _, r := range reminders {
		buckets[r.Category] = append(buckets[r.Category], r)
	}

	var batch models.ReminderBatch
	remaining := sendCap
	order := []models.ReminderCategory{
		models.CategoryUpcoming, models.CategoryDueToday,
		models.CategoryOverdue, models.CategoryCritical,
	}
	for _, category := range order {
		bucket := buckets[category]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Urgency > bucket[j].Urgency
		})
		kept := bucket
		if len(kept) > remaining {
			batch.Truncated += len(kept) - remaining
			kept = kept[:remaining]
		}
		remaining -= len(kept)
		batch.Total += len(kept)
		switch category {
		case models.CategoryUpcoming:
			batch.Upcoming = kept
		case models.CategoryDueToday:
			batch.DueToday = kept
		case models.CategoryOverdue:
			batch.Overdue = kept
		case models.CategoryCritical:
			batch.Critical = kept
		}
	}
	return batch
}

// urgencyScore combines the category base, the escalation multiplier and the
// business-impact multiplier, truncated to an integer.
func urgencyScore(category models.ReminderCategory, level models.NotificationLevel, kpiName string, keywords []string) int {
	score := urgencyBase[category] * (1 + float64(level)*0.5)
	if isHighImpact(kpiName, keywords) {
		score *= 2
	}
	return int(math.Trunc(score))
}

func isHighImpact(kpiName string, keywords []string) bool {
	name := strings.ToLower(kpiName)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(name, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// UrgencyLabelFor maps a score onto the UI label. The label never feeds
// sorting, only display.
func UrgencyLabelFor(score int) models.UrgencyLabel {
	switch {
	case score >= 80:
		return models.UrgencyCritical
	case score >= 40:
		return models.UrgencyHigh
	case score >= 20:
		return models.UrgencyMedium
	}
	return models.UrgencyLow
}

// AllowedAfter is the anti-spam gate: a reminder is suppressed while fewer
// than cooldownHours have passed since the last one. A missing timestamp or
// a clock anomaly fails open.
func AllowedAfter(lastSent, now time.Time, cooldownHours int) bool {
	if lastSent.IsZero() {
		return true
	}
	if cooldownHours <= 0 {
		cooldownHours = DefaultReminderCooldownHours
	}
	elapsed := now.Sub(lastSent)
	if elapsed < 0 {
		return true
	}
	return elapsed >= time.Duration(cooldownHours)*time.Hour
}

type messageTemplate struct {
	title string
	body  string
}

var messageTemplates = map[models.ReminderCategory]map[string]messageTemplate{
	models.CategoryUpcoming: {
		"de": {"KPI-Erinnerung: {kpi_name}", "Für {kpi_name} ist in {days} Tagen ein neuer Wert fällig."},
		"en": {"KPI reminder: {kpi_name}", "A new value for {kpi_name} is due in {days} days."},
	},
	models.CategoryDueToday: {
		"de": {"Heute fällig: {kpi_name}", "Der Wert für {kpi_name} ist heute fällig."},
		"en": {"Due today: {kpi_name}", "The value for {kpi_name} is due today."},
	},
	models.CategoryOverdue: {
		"de": {"Überfällig: {kpi_name}", "Der Wert für {kpi_name} ist seit {days} Tagen überfällig."},
		"en": {"Overdue: {kpi_name}", "The value for {kpi_name} is {days} days overdue."},
	},
	models.CategoryCritical: {
		"de": {"Dringend: {kpi_name}", "Der Wert für {kpi_name} ist seit {days} Tagen überfällig und eskaliert."},
		"en": {"Urgent: {kpi_name}", "The value for {kpi_name} is {days} days overdue and has been escalated."},
	},
}

var recommendedActions = map[models.ReminderCategory]map[string][]string{
	models.CategoryUpcoming: {
		"de": {"Aktuellen Wert erfassen"},
		"en": {"Record the current value"},
	},
	models.CategoryDueToday: {
		"de": {"Wert heute erfassen"},
		"en": {"Record the value today"},
	},
	models.CategoryOverdue: {
		"de": {"Fehlenden Wert nachtragen", "Bei Problemen den Team-Lead informieren"},
		"en": {"Submit the missing value", "Inform your team lead about blockers"},
	},
	models.CategoryCritical: {
		"de": {"Fehlenden Wert sofort nachtragen", "Rücksprache mit dem Management halten"},
		"en": {"Submit the missing value immediately", "Align with management"},
	},
}

// BuildMessage renders the category template for the requested language
// (default "de") with the owner personalization. The formal style replaces
// the first name with a title and surname salutation. Rendering is
// deterministic and side-effect free; delivery belongs to a collaborator.
func BuildMessage(kpi *models.KPI, category models.ReminderCategory, daysDiff int, lang string, formal bool) models.ReminderMessage {
	if lang == "" {
		lang = "de"
	}
	templates, ok := messageTemplates[category]
	if !ok {
		return models.ReminderMessage{}
	}
	tpl, ok := templates[lang]
	if !ok {
		tpl = templates["de"]
	}

	days := daysDiff
	if days < 0 {
		days = -days
	}

	replacer := strings.NewReplacer(
		"{kpi_name}", kpi.Name,
		"{name}", kpi.Name,
		"{days}", strconv.Itoa(days),
	)

	body := replacer.Replace(tpl.body)
	salutation := greeting(kpi.OwnerName, lang, formal)
	if salutation != "" {
		body = salutation + " " + body
	}

	return models.ReminderMessage{
		Title:   replacer.Replace(tpl.title),
		Body:    body,
		Actions: recommendedActions[category][lang],
	}
}

func greeting(owner models.OwnerName, lang string, formal bool) string {
	if formal {
		name := strings.TrimSpace(owner.Title + " " + owner.LastName)
		if name == "" {
			return ""
		}
		if lang == "en" {
			return "Dear " + name + ","
		}
		return "Guten Tag " + name + ","
	}
	if owner.FirstName == "" {
		return ""
	}
	if lang == "en" {
		return "Hi " + owner.FirstName + ","
	}
	return "Hallo " + owner.FirstName + ","
}
