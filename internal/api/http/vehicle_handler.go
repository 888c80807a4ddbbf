package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/service"
)

type VehicleHandler struct {
	vehicleSvc service.VehicleService
	present    presenter
}

func NewVehicleHandler(vehicleSvc service.VehicleService, present presenter) *VehicleHandler {
	return &VehicleHandler{vehicleSvc: vehicleSvc, present: present}
}

type vehicleRequest struct {
	Plate     string               `json:"plate"`
	Make      string               `json:"make"`
	Model     string               `json:"model"`
	Year      int32                `json:"year"`
	Chassis   string               `json:"chassis"`
	Mileage   int32                `json:"mileage"`
	FipeValue decimal.Decimal      `json:"fipe_value"`
	Renavam   string               `json:"renavam"`
	Status    domain.VehicleStatus `json:"status"`
}

func (req vehicleRequest) apply(v *domain.Vehicle) {
	v.Plate = req.Plate
	v.Make = req.Make
	v.Model = req.Model
	v.Year = req.Year
	v.Chassis = req.Chassis
	v.Mileage = req.Mileage
	v.FipeValue = req.FipeValue
	v.Renavam = req.Renavam
}

type vehicleDetailResponse struct {
	vehicleResponse
	TotalExpenses        string `json:"total_expenses"`
	TotalExpensesDisplay string `json:"total_expenses_display"`
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vehicles, err := h.vehicleSvc.ListVehicles(r.Context(), q.Get("q"), domain.VehicleStatus(q.Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, h.present.vehicle(&vehicles[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v := &domain.Vehicle{Status: req.Status}
	req.apply(v)
	if err := h.vehicleSvc.CreateVehicle(r.Context(), v); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.vehicle(v))
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicleSvc.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.vehicleSvc.VehicleExpenseTotal(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleDetailResponse{
		vehicleResponse:      h.present.vehicle(v),
		TotalExpenses:        h.present.fixed(total),
		TotalExpensesDisplay: h.present.display(total),
	})
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicleSvc.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(v)
	if err := h.vehicleSvc.UpdateVehicle(r.Context(), v); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.vehicle(v))
}

func (h *VehicleHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status domain.VehicleStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicleSvc.SetVehicleStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.vehicle(v))
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.vehicleSvc.DeleteVehicle(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
