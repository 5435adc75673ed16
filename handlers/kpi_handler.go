package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	middleware "kpitracker/middlewares"
	"kpitracker/models"
	service "kpitracker/services"
	"kpitracker/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type KPIHandler struct {
	service service.KPIService
	status  service.StatusService
}

func NewKPIHandler(kpiService service.KPIService, statusService service.StatusService) *KPIHandler {
	return &KPIHandler{
		service: kpiService,
		status:  statusService,
	}
}

func (h *KPIHandler) CreateKPI(w http.ResponseWriter, r *http.Request) {
	var kpi models.KPI
	if err := utils.DecodeAndValidate(w, r, &kpi); err != nil {
		return
	}

	// Get username from JWT context
	username := middleware.GetUsernameFromContext(r.Context())
	kpi.Metadata.CreatedBy = username
	kpi.Metadata.UpdatedBy = username
	if kpi.OwnerID == "" {
		kpi.OwnerID = username
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	createdKPI, issues, err := h.service.CreateKPI(ctx, &kpi)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if createdKPI == nil {
		utils.HandleValidationResponse(w, http.StatusBadRequest, issues)
		return
	}

	utils.HandleDataResponse(w, "KPI created successfully", createdKPI, http.StatusCreated)
}

func (h *KPIHandler) GetKPIByID(w http.ResponseWriter, r *http.Request) {
	objectID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	kpi, err := h.service.GetKPIByID(ctx, objectID)
	if err != nil {
		utils.HandleMessageResponse(w, "KPI not found", http.StatusNotFound)
		return
	}

	utils.HandleDataResponse(w, "KPI retrieved successfully", kpi, http.StatusOK)
}

func (h *KPIHandler) GetAllKPIs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	kpis, err := h.service.GetAllKPIs(ctx)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleDataResponse(w, "KPIs retrieved successfully", kpis, http.StatusOK)
}

func (h *KPIHandler) UpdateKPI(w http.ResponseWriter, r *http.Request) {
	objectID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var kpi models.KPI
	if err := utils.DecodeAndValidate(w, r, &kpi); err != nil {
		return
	}

	username := middleware.GetUsernameFromContext(r.Context())
	kpi.Metadata.UpdatedBy = username
	force := r.URL.Query().Get("force") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	updatedKPI, issues, err := h.service.UpdateKPI(ctx, objectID, &kpi, force)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusConflict)
		return
	}
	if updatedKPI == nil {
		utils.HandleValidationResponse(w, http.StatusBadRequest, issues)
		return
	}

	utils.HandleDataResponse(w, "KPI updated successfully", updatedKPI, http.StatusOK)
}

func (h *KPIHandler) DeleteKPI(w http.ResponseWriter, r *http.Request) {
	objectID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	username := middleware.GetUsernameFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.service.SoftDeleteKPI(ctx, objectID, username); err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleMessageResponse(w, "KPI deleted successfully", http.StatusOK)
}

type kpiStatusResponse struct {
	KPIID  primitive.ObjectID `json:"kpi_id"`
	Status models.Status      `json:"status"`
	Period string             `json:"period"`
}

// GetKPIStatus derives the traffic-light status on demand. Thresholds and
// the business-day-strict variant are selectable per request.
func (h *KPIHandler) GetKPIStatus(w http.ResponseWriter, r *http.Request) {
	objectID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	kpi, err := h.service.GetKPIByID(ctx, objectID)
	if err != nil {
		utils.HandleMessageResponse(w, "KPI not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	thresholds := thresholdsFromQuery(r)

	var status models.Status
	if r.URL.Query().Get("strict") == "true" {
		status, err = h.status.EvaluateKPIStrict(ctx, kpi, now, thresholds)
	} else {
		status, err = h.status.EvaluateKPI(ctx, kpi, now, thresholds)
	}
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := kpiStatusResponse{
		KPIID:  kpi.ID,
		Status: status,
		Period: service.CurrentPeriod(kpi.Interval, now),
	}
	utils.HandleDataResponse(w, "Status computed successfully", response, http.StatusOK)
}

type dashboardResponse struct {
	Overall  models.Status              `json:"overall"`
	Strategy models.AggregationStrategy `json:"strategy"`
	Statuses map[string]models.Status   `json:"statuses"`
	Counts   map[models.Status]int      `json:"counts"`
}

// GetDashboard evaluates every KPI in one pass and aggregates with the
// requested strategy (severity_max by default).
func (h *KPIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	kpis, err := h.service.GetAllKPIs(ctx)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	statuses, err := h.status.EvaluateAll(ctx, kpis, time.Now(), thresholdsFromQuery(r))
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	strategy := models.AggregateSeverityMax
	if r.URL.Query().Get("strategy") == string(models.AggregatePercentage) {
		strategy = models.AggregatePercentage
	}

	response := dashboardResponse{
		Strategy: strategy,
		Statuses: make(map[string]models.Status, len(statuses)),
		Counts:   map[models.Status]int{},
	}
	all := make([]models.Status, 0, len(statuses))
	for id, status := range statuses {
		response.Statuses[id.Hex()] = status
		response.Counts[status]++
		all = append(all, status)
	}
	response.Overall = service.AggregateStatus(all, strategy)

	utils.HandleDataResponse(w, "Dashboard computed successfully", response, http.StatusOK)
}

func thresholdsFromQuery(r *http.Request) service.StatusThresholds {
	thresholds := service.DefaultStatusThresholds()
	if v, err := strconv.Atoi(r.URL.Query().Get("warning_threshold_days")); err == nil {
		thresholds.WarningDays = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("critical_threshold_days")); err == nil {
		thresholds.CriticalDays = v
	}
	return thresholds
}

func parseObjectID(w http.ResponseWriter, id string) (primitive.ObjectID, bool) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		utils.HandleMessageResponse(w, "Invalid ID format", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return objectID, true
}
