package http

import (
	"fmt"
	"net/http"
	"strconv"
)

func (s *Server) handleExpensesByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	paid, err := queryBool(r, "paid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.svc.Expenses.ListByEvent(r.Context(), eventID, paid, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(expenses)).Write(w, r)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	x, err := s.svc.Expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(x).Write(w, r)
}

func (s *Server) handleFilterExpenses(w http.ResponseWriter, r *http.Request) {
	var req expenseFilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expenses, total, err := s.svc.Expenses.Filter(r.Context(), req.filter())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Header("X-Total-Count", strconv.Itoa(total)).
		Body(nonNil(expenses)).
		Write(w, r)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	x, err := s.svc.Expenses.Create(r.Context(), req.expense())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/expenses/%d", x.ID)).
		Body(x).
		Write(w, r)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Expenses.Update(r.Context(), id, req.update()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
