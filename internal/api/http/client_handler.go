package http

import (
	"net/http"

	"locar-backend/internal/domain"
	"locar-backend/internal/service"
)

type ClientHandler struct {
	clientSvc service.ClientService
	uploads   *uploader
}

func NewClientHandler(clientSvc service.ClientService, uploads *uploader) *ClientHandler {
	return &ClientHandler{clientSvc: clientSvc, uploads: uploads}
}

type clientRequest struct {
	Name          string `json:"name"`
	TaxID         string `json:"tax_id"`
	BirthDate     Date   `json:"birth_date"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	LicenseNumber string `json:"license_number"`
	LicenseExpiry *Date  `json:"license_expiry"`
	Notes         string `json:"notes"`
}

func (req clientRequest) apply(c *domain.Client) {
	c.Name = req.Name
	c.TaxID = req.TaxID
	c.BirthDate = req.BirthDate.Time
	c.Phone = req.Phone
	c.Email = req.Email
	c.Address = req.Address
	c.LicenseNumber = req.LicenseNumber
	c.LicenseExpiry = nil
	if req.LicenseExpiry != nil && !req.LicenseExpiry.IsZero() {
		t := req.LicenseExpiry.Time
		c.LicenseExpiry = &t
	}
	c.Notes = req.Notes
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientSvc.ListClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]clientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, mapClient(&clients[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := &domain.Client{}
	req.apply(c)
	if err := h.clientSvc.CreateClient(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapClient(c))
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.clientSvc.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapClient(c))
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := &domain.Client{ID: id}
	req.apply(c)
	if err := h.clientSvc.UpdateClient(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	if c, err = h.clientSvc.GetClient(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapClient(c))
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.clientSvc.DeleteClient(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDocument stores the request body as the client's document.
func (h *ClientHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.clientSvc.AttachDocument(r.Context(), id, filename, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapClient(c))
}
