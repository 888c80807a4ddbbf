package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/service"
)

type ExpenseHandler struct {
	expenseSvc service.ExpenseService
	present    presenter
	uploads    *uploader
}

func NewExpenseHandler(expenseSvc service.ExpenseService, present presenter, uploads *uploader) *ExpenseHandler {
	return &ExpenseHandler{expenseSvc: expenseSvc, present: present, uploads: uploads}
}

type expenseRequest struct {
	VehicleID   int32                  `json:"vehicle_id"`
	Category    domain.ExpenseCategory `json:"category"`
	Description string                 `json:"description"`
	Date        Date                   `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
}

func (req expenseRequest) apply(e *domain.Expense) {
	e.VehicleID = req.VehicleID
	e.Category = req.Category
	e.Description = req.Description
	e.Date = req.Date.Time
	e.Amount = req.Amount
}

// List filters by vehicle, category, month and year query parameters.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	var f domain.ExpenseFilter
	vehicleID, err := queryInt(r, "vehicle_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.VehicleID = int32(vehicleID)
	f.Category = domain.ExpenseCategory(r.URL.Query().Get("category"))
	if f.Month, err = queryInt(r, "month"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Year, err = queryInt(r, "year"); err != nil {
		writeError(w, r, err)
		return
	}

	listing, err := h.expenseSvc.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.expenseListing(listing))
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e := &domain.Expense{}
	req.apply(e)
	if err := h.expenseSvc.CreateExpense(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.expense(e))
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.expenseSvc.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.expense(e))
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e := &domain.Expense{ID: id}
	req.apply(e)
	if err := h.expenseSvc.UpdateExpense(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	if e, err = h.expenseSvc.GetExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.expense(e))
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.expenseSvc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filename, body, err := h.uploads.open(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.expenseSvc.AttachReceipt(r.Context(), id, filename, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.expense(e))
}
