package http

import (
	"net/http"

	"locar-backend/internal/service"
)

type ReportHandler struct {
	reportSvc service.ReportService
	present   presenter
}

func NewReportHandler(reportSvc service.ReportService, present presenter) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, present: present}
}

// Dashboard reports the window given by start and end (yyyy-mm-dd). A
// missing bound selects the current month.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.reportSvc.Dashboard(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.dashboard(d))
}
