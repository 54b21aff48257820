package http

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"eventbudget/internal/core"
	"eventbudget/internal/export"
	"eventbudget/internal/services"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(events)).Write(w, r)
}

func (s *Server) handleFilterEvents(w http.ResponseWriter, r *http.Request) {
	var req eventFilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	events, total, err := s.svc.Events.Filter(r.Context(), req.filter())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Header("X-Total-Count", strconv.Itoa(total)).
		Body(nonNil(events)).
		Write(w, r)
}

func (s *Server) handleTemplateEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events.Templates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(events)).Write(w, r)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(e).Write(w, r)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Create(r.Context(), req.event())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/events/%d", e.ID)).
		Body(e).
		Write(w, r)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Events.Update(r.Context(), id, req.update()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Events.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Events.Summary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w, r)
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := s.svc.Events.Cashflow(r.Context(), id, r.URL.Query().Get("interval"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(points)).Write(w, r)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req services.AllocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.svc.Events.Allocate(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(result).Write(w, r)
}

func (s *Server) handleCategoryBudgets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.svc.Events.CategoryBudgets(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(rows)).Write(w, r)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	link, err := s.svc.Events.EnsureShareLink(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(link).Write(w, r)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, core.Invalid(err))
		return
	}

	e, err := s.svc.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.svc.Expenses.ListByEvent(r.Context(), id, nil, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	slices.SortStableFunc(expenses, func(a, b core.Expense) int { return a.Date.Compare(b.Date) })

	var buf bytes.Buffer
	if err := export.Write(&buf, format, e, expenses); err != nil {
		writeError(w, r, fmt.Errorf("export event %d: %w", id, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(e)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
