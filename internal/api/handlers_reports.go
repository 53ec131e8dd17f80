package api

import (
	"net/http"

	"github.com/oikonomos/ledger-service/internal/domain"
)

func (h *Handlers) CashFlowReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.CashFlowReport(r.Context(), r.URL.Query().Get("periodYm"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// UtilityReportHandler posts any due depreciation for the period before aggregating.
func (h *Handlers) UtilityReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.UtilityReport(r.Context(), r.URL.Query().Get("periodYm"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) AdjustmentKPIHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kpi, err := h.ledger.AdjustmentKPI(r.Context(), query.Get("fromPeriodYm"), query.Get("toPeriodYm"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kpi)
}

func (h *Handlers) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.ledger.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handlers) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	category, err := h.ledger.CreateCategory(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handlers) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.ledger.ListTags(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handlers) CreateTagHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tag, err := h.ledger.CreateTag(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (h *Handlers) ListPayeesHandler(w http.ResponseWriter, r *http.Request) {
	payees, err := h.ledger.ListPayees(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payees)
}

func (h *Handlers) CreatePayeeHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePayeeInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	payee, err := h.ledger.CreatePayee(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payee)
}
