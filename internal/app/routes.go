package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	h := deps.CalendarHandler

	// fixed paths before {id}
	r.HandleFunc("/api/schedule/occurrences", h.GetOccurrences).Methods("GET")
	r.HandleFunc("/api/schedule/upcoming", h.GetUpcoming).Methods("GET")
	r.HandleFunc("/api/schedule/conflicts", h.CheckConflicts).Methods("POST")

	r.HandleFunc("/api/schedule", h.ListSchedules).Methods("GET")
	r.HandleFunc("/api/schedule", h.CreateSchedule).Methods("POST")
	r.HandleFunc("/api/schedule/{id}", h.GetSchedule).Methods("GET")
	r.HandleFunc("/api/schedule/{id}", h.UpdateSchedule).Methods("PUT")
	r.HandleFunc("/api/schedule/{id}", h.DeleteSchedule).Methods("DELETE")
	r.HandleFunc("/api/schedule/{id}/ics", h.ExportSchedule).Methods("GET")
}
