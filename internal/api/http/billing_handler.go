package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"locar-backend/internal/domain"
	"locar-backend/internal/idempotency"
	"locar-backend/internal/logger"
	"locar-backend/internal/service"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

type BillingHandler struct {
	billingSvc  service.BillingService
	idempotency *idempotency.Service
	present     presenter
}

func NewBillingHandler(billingSvc service.BillingService, idem *idempotency.Service, present presenter) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc, idempotency: idem, present: present}
}

type financialsResponse struct {
	RentalID           int32  `json:"rental_id"`
	TotalValue         string `json:"total_value"`
	TotalValueDisplay  string `json:"total_value_display"`
	Installment        string `json:"installment"`
	InstallmentDisplay string `json:"installment_display"`
	Collected          string `json:"collected"`
	CollectedDisplay   string `json:"collected_display"`
	Balance            string `json:"balance"`
	BalanceDisplay     string `json:"balance_display"`
}

// RecordPayment registers the next weekly installment. Requests carrying an
// Idempotency-Key replay the first outcome instead of paying twice.
func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := r.Header.Get(headerIdempotencyKey)
	if key == "" || h.idempotency == nil {
		h.recordPayment(w, r, id, "", "")
		return
	}

	scope := fmt.Sprintf("payments:%d", id)
	cached, err := h.idempotency.Begin(r.Context(), scope, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(headerReplayed, "true")
		w.WriteHeader(cached.StatusCode)
		_, _ = w.Write(cached.Body)
		return
	}
	h.recordPayment(w, r, id, scope, key)
}

func (h *BillingHandler) recordPayment(w http.ResponseWriter, r *http.Request, id int32, scope, key string) {
	ctx := r.Context()
	res, err := h.billingSvc.RecordPayment(ctx, id)
	if err != nil {
		if key != "" {
			if abandonErr := h.idempotency.Abandon(ctx, scope, key); abandonErr != nil {
				logger.WarnContext(ctx, "Failed to release idempotency key", "scope", scope, "error", abandonErr)
			}
		}
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.FullyPaid {
		status = http.StatusOK
	}
	body, err := json.Marshal(h.present.paymentResult(res))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if key != "" {
		if err := h.idempotency.Complete(ctx, scope, key, status, body); err != nil {
			// the payment stays committed; only the replay record is lost
			logger.ErrorContext(ctx, "Failed to store idempotent response", "scope", scope, "error", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.billingSvc.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, h.present.payment(&payments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BillingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.billingSvc.Schedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.schedule(view))
}

func (h *BillingHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := h.billingSvc.Balance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.financials(id, f))
}

// Receivables is the board of active rentals grouped by start weekday.
func (h *BillingHandler) Receivables(w http.ResponseWriter, r *http.Request) {
	groups, err := h.billingSvc.Receivables(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.receivables(groups))
}

func (p presenter) financials(id int32, f *domain.RentalFinancials) financialsResponse {
	return financialsResponse{
		RentalID:           id,
		TotalValue:         p.fixed(f.TotalValue),
		TotalValueDisplay:  p.display(f.TotalValue),
		Installment:        p.fixed(f.Installment),
		InstallmentDisplay: p.display(f.Installment),
		Collected:          p.fixed(f.Collected),
		CollectedDisplay:   p.display(f.Collected),
		Balance:            p.fixed(f.Outstanding),
		BalanceDisplay:     p.display(f.Outstanding),
	}
}
