package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/service"
)

type RentalHandler struct {
	rentalSvc service.RentalService
	present   presenter
	uploads   *uploader
}

func NewRentalHandler(rentalSvc service.RentalService, present presenter, uploads *uploader) *RentalHandler {
	return &RentalHandler{rentalSvc: rentalSvc, present: present, uploads: uploads}
}

type createRentalRequest struct {
	ClientID     int32              `json:"client_id"`
	VehicleID    int32              `json:"vehicle_id"`
	StartAt      *time.Time         `json:"start_at"`
	StartMileage *int32             `json:"start_mileage"`
	WeeklyRate   decimal.Decimal    `json:"weekly_rate"`
	Weeks        int32              `json:"weeks"`
	Deposit      decimal.Decimal    `json:"deposit"`
	PaymentMode  domain.PaymentMode `json:"payment_mode"`
	Notes        string             `json:"notes"`
}

type updateRentalRequest struct {
	ClientID     *int32              `json:"client_id"`
	VehicleID    *int32              `json:"vehicle_id"`
	StartAt      *time.Time          `json:"start_at"`
	StartMileage *int32              `json:"start_mileage"`
	EndMileage   *int32              `json:"end_mileage"`
	WeeklyRate   *decimal.Decimal    `json:"weekly_rate"`
	Weeks        *int32              `json:"weeks"`
	Deposit      *decimal.Decimal    `json:"deposit"`
	PaymentMode  *domain.PaymentMode `json:"payment_mode"`
	Notes        *string             `json:"notes"`
}

type closeRentalRequest struct {
	EndMileage    int32                `json:"end_mileage"`
	DepositStatus domain.DepositStatus `json:"deposit_status"`
	Notes         string               `json:"notes"`
}

type rentalChangeResponse struct {
	Rental          rentalResponse `json:"rental"`
	VehicleReleased bool           `json:"vehicle_released"`
	Message         string         `json:"message,omitempty"`
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rentals, err := h.rentalSvc.ListRentals(r.Context(), q.Get("q"), domain.RentalStatus(q.Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.rentals(rentals))
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := service.CreateRentalRequest{
		ClientID:     req.ClientID,
		VehicleID:    req.VehicleID,
		StartMileage: req.StartMileage,
		WeeklyRate:   req.WeeklyRate,
		Weeks:        req.Weeks,
		Deposit:      req.Deposit,
		PaymentMode:  req.PaymentMode,
		Notes:        req.Notes,
	}
	if req.StartAt != nil {
		in.StartAt = *req.StartAt
	}
	rt, err := h.rentalSvc.CreateRental(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.rental(rt))
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := h.rentalSvc.GetRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.rental(rt))
}

func (h *RentalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.rentalSvc.UpdateRental(r.Context(), id, service.UpdateRentalRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentalChangeResponse{
		Rental:          h.present.rental(res.Rental),
		VehicleReleased: res.VehicleReleased,
	})
}

// Close ends the contract and releases the vehicle.
func (h *RentalHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req closeRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.rentalSvc.CloseRental(r.Context(), id, service.CloseRentalRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentalChangeResponse{
		Rental:          h.present.rental(res.Rental),
		VehicleReleased: res.VehicleReleased,
		Message:         res.Message,
	})
}

func (h *RentalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.rentalSvc.DeleteRental(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDocument stores the request body as the signed contract.
func (h *RentalHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
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
	rt, err := h.rentalSvc.AttachDocument(r.Context(), id, filename, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.rental(rt))
}
