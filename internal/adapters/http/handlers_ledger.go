package web

import (
	"net/http"
	"strconv"

	"courtside/internal/adapters/http/middleware"
	"courtside/internal/application/listutil"
	"courtside/internal/application/orchestrators"
	"courtside/internal/application/projections"
	"courtside/internal/domain/ledger"
)

// handleGetBalance returns the caller's money and points balances.
func handleGetBalance(w http.ResponseWriter, r *http.Request) {
	view, err := projections.QueryUserBalance(r.Context(), middleware.UserID(r), projections.UserBalanceDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetTransactions returns one page of the caller's ledger history,
// newest first. Accepts page and per_page query parameters, or a bare limit
// parameter for callers that only want the first n entries.
func handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := listutil.ParsePageParams(q)
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		if n > listutil.MaxLimit {
			n = listutil.MaxLimit
		}
		page = listutil.PageParams{Page: 1, PerPage: n}
	}
	views, err := projections.QueryTransactionHistory(r.Context(), middleware.UserID(r), page, projections.TransactionHistoryDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleTopUp credits a user's balance. The route requires the admin role;
// payment capture happens outside this service.
func handleTopUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Currency string `json:"currency"`
		Amount   int64  `json:"amount"`
	}
	if err := strictDecode(r, &req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteTopUp(r.Context(), orchestrators.TopUpInput{
		UserID:   req.UserID,
		Currency: ledger.Currency(req.Currency),
		Amount:   req.Amount,
	}, orchestrators.TopUpDeps{Ledger: services.Ledger})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
