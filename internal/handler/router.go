package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the lending API under /api/v1 together with the health
// and metrics endpoints. Middleware applies to every route.
func NewRouter(lending *LendingHandler, health *HealthHandler, metrics http.Handler, middleware ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware...)

	// Health check
	if health != nil {
		router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
		router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)
	}
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/quotes", lending.Quote).Methods(http.MethodPost)

	api.HandleFunc("/applications", lending.Apply).Methods(http.MethodPost)
	api.HandleFunc("/applications", lending.ListApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications/{applicationId}/approve", lending.Approve).Methods(http.MethodPost)

	api.HandleFunc("/loans/{loanId}", lending.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/schedule", lending.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/summary", lending.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/repayments", lending.Repay).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/repayments", lending.ListRepayments).Methods(http.MethodGet)

	return router
}
