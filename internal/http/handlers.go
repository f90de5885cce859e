package http

import (
	"net/http"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u core.User
	if !decodeJSON(w, r, &u) {
		return
	}
	u.DisplayName = sanitizeInput(u.DisplayName)
	u.Email = sanitizeInput(u.Email)
	if err := u.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.store.CreateUser(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g core.Group
	if !decodeJSON(w, r, &g) {
		return
	}
	g.Name = sanitizeInput(g.Name)
	if err := g.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.store.CreateGroup(r.Context(), g)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}
	if err := s.store.AddMember(r.Context(), r.PathValue("id"), body.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("userID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) (store.ListOptions, bool) {
	q := r.URL.Query()
	opts := store.ListOptions{
		UserID:  q.Get("user"),
		GroupID: q.Get("group"),
		SortBy:  store.SortField(q.Get("sort")),
		Dir:     store.SortDir(q.Get("dir")),
	}
	switch opts.SortBy {
	case "", store.SortByDate, store.SortByAmount, store.SortByTitle:
	default:
		return opts, false
	}
	switch opts.Dir {
	case "", store.SortAsc, store.SortDesc:
	default:
		return opts, false
	}
	return opts, true
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptionsFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sort or dir parameter")
		return
	}
	expenses, err := s.expenses.ListExpenses(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if !decodeJSON(w, r, &e) {
		return
	}
	e.Title = sanitizeInput(e.Title)
	e.Notes = sanitizeInput(e.Notes)
	e.Category = sanitizeInput(e.Category)
	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if !decodeJSON(w, r, &e) {
		return
	}
	e.ID = r.PathValue("id")
	e.Title = sanitizeInput(e.Title)
	e.Notes = sanitizeInput(e.Notes)
	e.Category = sanitizeInput(e.Category)
	if err := s.expenses.UpdateExpense(r.Context(), e); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSplitEqual(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount         core.Money `json:"amount"`
		ParticipantIDs []string   `json:"participantIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	shares, err := s.expenses.PreviewEqualSplit(body.Amount, body.ParticipantIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleSplitPercentage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount       core.Money `json:"amount"`
		Participants []struct {
			UserID  string  `json:"userId"`
			Percent float64 `json:"percent"`
		} `json:"participants"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	participants := make([]ledger.PercentShare, len(body.Participants))
	for i, p := range body.Participants {
		participants[i] = ledger.PercentShare{UserID: p.UserID, Percent: p.Percent}
	}
	shares, err := s.expenses.PreviewPercentageSplit(body.Amount, participants)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return
	}
	if summary, found := s.balanceCache.Get(userID); found {
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary, err := s.settlements.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.balanceCache.Set(userID, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleProposeSettlements(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.settlements.ProposeSettlements(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if proposals == nil {
		proposals = []core.Settlement{}
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var rec core.SettlementRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	created, err := s.settlements.RecordSettlement(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSettlementRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.settlements.ListRecorded(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []core.SettlementRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCompleteSettlement(w http.ResponseWriter, r *http.Request) {
	if err := s.settlements.CompleteSettlement(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return
	}
	now := time.Now()
	key := userID + ":" + now.Format("2006-01")
	if report, found := s.reportCache.Get(key); found {
		writeJSON(w, http.StatusOK, report)
		return
	}
	report, err := s.settlements.MonthlyReport(r.Context(), userID, now)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}
