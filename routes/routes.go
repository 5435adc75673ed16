package routes

import (
	"net/http"

	"kpitracker/handlers"
	"kpitracker/middlewares"
)

func SetupRoutes(kpiHandler *handlers.KPIHandler, valueHandler *handlers.ValueHandler, analyticsHandler *handlers.AnalyticsHandler, reminderHandler *handlers.ReminderHandler, jwtSecret string) *http.ServeMux {
	mux := http.NewServeMux()

	// Apply JWT middleware to all routes
	jwtMiddleware := middlewares.JWTMiddleware(jwtSecret)

	// KPI routes
	mux.Handle("POST /api/kpi", jwtMiddleware(http.HandlerFunc(kpiHandler.CreateKPI)))
	mux.Handle("GET /api/kpi", jwtMiddleware(http.HandlerFunc(kpiHandler.GetAllKPIs)))
	mux.Handle("GET /api/kpi/{id}", jwtMiddleware(http.HandlerFunc(kpiHandler.GetKPIByID)))
	mux.Handle("PUT /api/kpi/{id}", jwtMiddleware(http.HandlerFunc(kpiHandler.UpdateKPI)))
	mux.Handle("DELETE /api/kpi/{id}", jwtMiddleware(http.HandlerFunc(kpiHandler.DeleteKPI)))
	// Status routes
	mux.Handle("GET /api/kpi/{id}/status", jwtMiddleware(http.HandlerFunc(kpiHandler.GetKPIStatus)))
	mux.Handle("GET /api/dashboard", jwtMiddleware(http.HandlerFunc(kpiHandler.GetDashboard)))
	// Value routes
	mux.Handle("POST /api/kpi/{id}/values", jwtMiddleware(http.HandlerFunc(valueHandler.SubmitValue)))
	mux.Handle("GET /api/kpi/{id}/values", jwtMiddleware(http.HandlerFunc(valueHandler.GetHistory)))
	// Evidence file routes
	mux.Handle("POST /api/values/{valueId}/evidence", jwtMiddleware(http.HandlerFunc(valueHandler.UploadEvidence)))
	mux.Handle("GET /api/values/evidence/{fileId}/download", jwtMiddleware(http.HandlerFunc(valueHandler.DownloadEvidence)))
	mux.Handle("DELETE /api/values/{valueId}/evidence/{fileId}", jwtMiddleware(http.HandlerFunc(valueHandler.DeleteEvidence)))
	// Analytics routes
	mux.Handle("GET /api/kpi/{id}/statistics", jwtMiddleware(http.HandlerFunc(analyticsHandler.GetStatistics)))
	mux.Handle("GET /api/kpi/{id}/trend", jwtMiddleware(http.HandlerFunc(analyticsHandler.GetTrend)))
	mux.Handle("GET /api/kpi/{id}/outliers", jwtMiddleware(http.HandlerFunc(analyticsHandler.GetOutliers)))
	mux.Handle("GET /api/kpi/{id}/correlation", jwtMiddleware(http.HandlerFunc(analyticsHandler.GetCorrelation)))
	mux.Handle("GET /api/kpi/{id}/forecast", jwtMiddleware(http.HandlerFunc(analyticsHandler.GetForecast)))
	// Reminder routes
	mux.Handle("GET /api/reminders", jwtMiddleware(http.HandlerFunc(reminderHandler.EvaluateReminders)))
	mux.Handle("POST /api/reminders/{id}/sent", jwtMiddleware(http.HandlerFunc(reminderHandler.MarkReminderSent)))
	mux.Handle("GET /api/reminders/escalations", jwtMiddleware(http.HandlerFunc(reminderHandler.GetEscalations)))

	return mux
}
