package api

import (
	"net/http"

	"github.com/oikonomos/ledger-service/internal/domain"
)

func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.ledger.CreateAccount(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.ledger.GetAccount(r.Context(), accountID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListSnapshotsHandler returns the reconciliation history of one account, newest first.
func (h *Handlers) ListSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	snapshots, err := h.ledger.ListSnapshots(r.Context(), accountID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// ListTransactionsHandler accepts optional periodYm and accrualType query filters.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := h.ledger.ListTransactions(r.Context(), query.Get("periodYm"), query.Get("accrualType"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransactionInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.ledger.CreateTransaction(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuidParam(r, "transactionID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.ledger.GetTransaction(r.Context(), transactionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) CreateAssetPurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAssetPurchaseInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.ledger.CreateAssetPurchase(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ListSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.ledger.ListSchedules(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *Handlers) GetScheduleHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := uuidParam(r, "scheduleID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	detail, err := h.ledger.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handlers) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ReconcileInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.ledger.Reconcile(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
