package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	repository "kpitracker/repositories"
	service "kpitracker/services"
	"kpitracker/utils"
)

type AnalyticsHandler struct {
	values     repository.KPIValueRepository
	statistics service.StatisticsService
}

func NewAnalyticsHandler(values repository.KPIValueRepository, statistics service.StatisticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		values:     values,
		statistics: statistics,
	}
}

func (h *AnalyticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := h.values.FindAllValues(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snapshot := h.statistics.Snapshot(history)
	utils.HandleDataResponse(w, "Statistics computed successfully", snapshot, http.StatusOK)
}

func (h *AnalyticsHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	window := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("window")); err == nil {
		window = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := h.values.FindAllValues(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	trend := h.statistics.DetailedTrend(history, window)
	utils.HandleDataResponse(w, "Trend computed successfully", trend, http.StatusOK)
}

func (h *AnalyticsHandler) GetOutliers(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	threshold := 0.0
	if v, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64); err == nil {
		threshold = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := h.values.FindAllValues(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	outliers := h.statistics.DetectOutliers(history, threshold)
	utils.HandleDataResponse(w, "Outliers computed successfully", outliers, http.StatusOK)
}

// GetCorrelation pairs two KPI histories by period and reports the Pearson
// coefficient. The second KPI comes from the "other" query parameter.
func (h *AnalyticsHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}
	otherID, ok := parseObjectID(w, r.URL.Query().Get("other"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	a, err := h.values.FindAllValues(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	b, err := h.values.FindAllValues(ctx, otherID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := h.statistics.Correlate(a, b)
	utils.HandleDataResponse(w, "Correlation computed successfully", result, http.StatusOK)
}

func (h *AnalyticsHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	periods := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("periods")); err == nil {
		periods = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := h.values.FindAllValues(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := h.statistics.Forecast(history, periods)
	utils.HandleDataResponse(w, "Forecast computed successfully", result, http.StatusOK)
}
