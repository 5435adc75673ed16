package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ReminderCategory string

const (
	CategoryUpcoming ReminderCategory = "upcoming"
	CategoryDueToday ReminderCategory = "due_today"
	CategoryOverdue  ReminderCategory = "overdue"
	CategoryCritical ReminderCategory = "critical"
)

type UrgencyLabel string

const (
	UrgencyCritical UrgencyLabel = "critical"
	UrgencyHigh     UrgencyLabel = "high"
	UrgencyMedium   UrgencyLabel = "medium"
	UrgencyLow      UrgencyLabel = "low"
)

// Reminder is the complete contract handed to the delivery collaborator.
// It is recomputed on every evaluation pass and never persisted.
type Reminder struct {
	KPIID        primitive.ObjectID `json:"kpi_id"`
	KPIName      string             `json:"kpi_name"`
	OwnerID      string             `json:"owner_id"`
	Category     ReminderCategory   `json:"category"`
	DaysUntilDue int                `json:"days_until_due"`
	DaysOverdue  int                `json:"days_overdue"`
	Level        NotificationLevel  `json:"level"`
	Urgency      int                `json:"urgency"`
	UrgencyLabel UrgencyLabel       `json:"urgency_label"`
	Roles        []string           `json:"roles"`
	Message      ReminderMessage    `json:"message"`
}

type ReminderMessage struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Actions []string `json:"actions"`
}

// ReminderBatch is the quota-limited output of one evaluation pass, bucketed
// by category in the fixed iteration order upcoming, due_today, overdue,
// critical.
type ReminderBatch struct {
	Upcoming  []Reminder `json:"upcoming"`
	DueToday  []Reminder `json:"due_today"`
	Overdue   []Reminder `json:"overdue"`
	Critical  []Reminder `json:"critical"`
	Total     int        `json:"total"`
	Truncated int        `json:"truncated"`
}
