package http

import (
	"net/http"

	"eventbudget/internal/services"
)

// handleSharedEvent serves the read-only view behind a share link. It needs
// no identity and is served from the share-view cache.
func (s *Server) handleSharedEvent(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Events.SharedEvent(r.Context(), r.PathValue("shareToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w, r)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req services.ReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reminder, err := s.svc.Reminders.Schedule(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(reminder).Write(w, r)
}
