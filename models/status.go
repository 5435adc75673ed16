package models

// Status is the traffic-light health of a single KPI. It is derived on
// demand from due-date proximity and never stored as source of truth.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Severity orders statuses: green < yellow < red.
func (s Status) Severity() int {
	switch s {
	case StatusYellow:
		return 1
	case StatusRed:
		return 2
	}
	return 0
}

// MaxStatus returns the more severe of two statuses.
func MaxStatus(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// AggregationStrategy selects how a collection of statuses collapses into
// one overall status.
type AggregationStrategy string

const (
	// AggregateSeverityMax is the default: any red wins, else any yellow.
	AggregateSeverityMax AggregationStrategy = "severity_max"
	// AggregatePercentage turns red only when more than 20% of KPIs are
	// red, and yellow when any red or more than 30% yellow is present.
	AggregatePercentage AggregationStrategy = "percentage"
)

// OverdueSeverity is the operational severity tier of an overdue KPI,
// keyed by days overdue. It is a separate scale from NotificationLevel.
type OverdueSeverity int

// NotificationLevel is the reminder engine's escalation tier (1..4). It
// drives recipient fan-out, not operational severity.
type NotificationLevel int

const (
	RoleOwner      = "owner"
	RoleTeamLead   = "team_lead"
	RoleManagement = "management"
)

// Roles lists who gets notified at this level. Levels 1-2 stay with the
// owning user, level 3 adds the team lead, level 4 adds management.
func (l NotificationLevel) Roles() []string {
	roles := []string{RoleOwner}
	if l >= 3 {
		roles = append(roles, RoleTeamLead)
	}
	if l >= 4 {
		roles = append(roles, RoleManagement)
	}
	return roles
}
