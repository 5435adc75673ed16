package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"kpitracker/models"
	repository "kpitracker/repositories"
	service "kpitracker/services"
	"kpitracker/utils"
)

type ReminderHandler struct {
	kpis      repository.KPIRepository
	reminders service.ReminderService
	log       repository.ReminderLogRepository
}

func NewReminderHandler(kpis repository.KPIRepository, reminders service.ReminderService, log repository.ReminderLogRepository) *ReminderHandler {
	return &ReminderHandler{
		kpis:      kpis,
		reminders: reminders,
		log:       log,
	}
}

// EvaluateReminders runs one full evaluation pass and returns the
// quota-limited batch, with throttled KPIs dropped before grouping. The
// output is the complete contract for the delivery collaborator; nothing
// is sent from here.
func (h *ReminderHandler) EvaluateReminders(w http.ResponseWriter, r *http.Request) {
	cfg := service.DefaultReminderConfig()
	if lang := r.URL.Query().Get("lang"); lang != "" {
		cfg.Language = lang
	}
	cfg.Formal = r.URL.Query().Get("formal") == "true"
	if v, err := strconv.Atoi(r.URL.Query().Get("cap")); err == nil && v > 0 {
		cfg.DailySendCap = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	kpis, err := h.kpis.GetAll(ctx)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	allowed := make([]models.KPI, 0, len(kpis))
	for i := range kpis {
		lastSent, err := h.log.LastSent(ctx, kpis[i].ID)
		if err != nil {
			// Anti-spam fails open: an unreadable log never suppresses.
			allowed = append(allowed, kpis[i])
			continue
		}
		if service.AllowedAfter(lastSent, now, service.DefaultReminderCooldownHours) {
			allowed = append(allowed, kpis[i])
		}
	}

	batch, err := h.reminders.EvaluateAll(ctx, allowed, now, cfg)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleDataResponse(w, "Reminders evaluated successfully", batch, http.StatusOK)
}

// MarkReminderSent is called by the delivery collaborator after it actually
// sent a reminder, so the throttle window starts counting.
func (h *ReminderHandler) MarkReminderSent(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.log.RecordSent(ctx, kpiID, time.Now()); err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleMessageResponse(w, "Reminder marked as sent", http.StatusOK)
}

type escalationEntry struct {
	KPIID       string                 `json:"kpi_id"`
	KPIName     string                 `json:"kpi_name"`
	DaysOverdue int                    `json:"days_overdue"`
	Severity    models.OverdueSeverity `json:"severity"`
	Roles       []string               `json:"roles"`
}

// GetEscalations lists overdue KPIs with their operational severity tier and
// the notification fan-out. This path uses the longer 24h cooldown.
func (h *ReminderHandler) GetEscalations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	kpis, err := h.kpis.GetAll(ctx)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	var escalations []escalationEntry
	for i := range kpis {
		kpi := &kpis[i]
		daysDiff := service.DaysUntil(now, service.DueDateFor(kpi, now))
		if daysDiff >= 0 {
			continue
		}

		lastSent, err := h.log.LastSent(ctx, kpi.ID)
		if err == nil && !service.AllowedAfter(lastSent, now, service.EscalationCooldownHours) {
			continue
		}

		daysOverdue := -daysDiff
		severity := service.OverdueSeverityFor(daysOverdue, service.DefaultSeverityLadder, service.DefaultSeverityTop)
		escalations = append(escalations, escalationEntry{
			KPIID:       kpi.ID.Hex(),
			KPIName:     kpi.Name,
			DaysOverdue: daysOverdue,
			Severity:    severity,
			Roles:       service.NotificationLevelFor(daysOverdue).Roles(),
		})
	}

	utils.HandleDataResponse(w, "Escalations computed successfully", escalations, http.StatusOK)
}
