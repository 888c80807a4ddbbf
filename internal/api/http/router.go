package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"locar-backend/internal/idempotency"
	"locar-backend/internal/metrics"
	"locar-backend/internal/service"
	"locar-backend/internal/storage"
	"locar-backend/internal/utils"
)

// Dependencies are the collaborators served by the API.
type Dependencies struct {
	Vehicles    service.VehicleService
	Clients     service.ClientService
	Rentals     service.RentalService
	Billing     service.BillingService
	Reports     service.ReportService
	Expenses    service.ExpenseService
	Files       storage.AttachmentStore
	Idempotency *idempotency.Service
	Metrics     *metrics.Metrics
	Money       utils.MoneyFormat
	Storage     storage.Config
	// Health maps dependency names to their readiness check.
	Health map[string]Pinger
}

// NewRouter builds the HTTP handler for the /api/v1 routes plus /healthz
// and /metrics.
func NewRouter(deps Dependencies) http.Handler {
	present := presenter{money: deps.Money}
	uploads := newUploader(deps.Storage)

	vehicles := NewVehicleHandler(deps.Vehicles, present)
	clients := NewClientHandler(deps.Clients, uploads)
	rentals := NewRentalHandler(deps.Rentals, present, uploads)
	billing := NewBillingHandler(deps.Billing, deps.Idempotency, present)
	reports := NewReportHandler(deps.Reports, present)
	expenses := NewExpenseHandler(deps.Expenses, present, uploads)
	attachments := NewAttachmentHandler(deps.Files)
	health := NewHealthHandler(deps.Health)

	router := mux.NewRouter()
	router.Use(Observe(deps.Metrics))
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	router.HandleFunc("/healthz", health.Health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/clients", clients.List).Methods(http.MethodGet)
	v1.HandleFunc("/clients", clients.Create).Methods(http.MethodPost)
	v1.HandleFunc("/clients/{id:[0-9]+}", clients.Get).Methods(http.MethodGet)
	v1.HandleFunc("/clients/{id:[0-9]+}", clients.Update).Methods(http.MethodPut)
	v1.HandleFunc("/clients/{id:[0-9]+}", clients.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/clients/{id:[0-9]+}/document", clients.UploadDocument).Methods(http.MethodPut)

	v1.HandleFunc("/vehicles", vehicles.List).Methods(http.MethodGet)
	v1.HandleFunc("/vehicles", vehicles.Create).Methods(http.MethodPost)
	v1.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.Get).Methods(http.MethodGet)
	v1.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.Update).Methods(http.MethodPut)
	v1.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/vehicles/{id:[0-9]+}/status", vehicles.SetStatus).Methods(http.MethodPut)

	v1.HandleFunc("/rentals", rentals.List).Methods(http.MethodGet)
	v1.HandleFunc("/rentals", rentals.Create).Methods(http.MethodPost)
	v1.HandleFunc("/rentals/{id:[0-9]+}", rentals.Get).Methods(http.MethodGet)
	v1.HandleFunc("/rentals/{id:[0-9]+}", rentals.Update).Methods(http.MethodPut)
	v1.HandleFunc("/rentals/{id:[0-9]+}", rentals.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/rentals/{id:[0-9]+}/close", rentals.Close).Methods(http.MethodPost)
	v1.HandleFunc("/rentals/{id:[0-9]+}/document", rentals.UploadDocument).Methods(http.MethodPut)
	v1.HandleFunc("/rentals/{id:[0-9]+}/schedule", billing.Schedule).Methods(http.MethodGet)
	v1.HandleFunc("/rentals/{id:[0-9]+}/balance", billing.Balance).Methods(http.MethodGet)
	v1.HandleFunc("/rentals/{id:[0-9]+}/payments", billing.ListPayments).Methods(http.MethodGet)
	v1.HandleFunc("/rentals/{id:[0-9]+}/payments", billing.RecordPayment).Methods(http.MethodPost)

	v1.HandleFunc("/receivables", billing.Receivables).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard", reports.Dashboard).Methods(http.MethodGet)

	v1.HandleFunc("/expenses", expenses.List).Methods(http.MethodGet)
	v1.HandleFunc("/expenses", expenses.Create).Methods(http.MethodPost)
	v1.HandleFunc("/expenses/{id:[0-9]+}", expenses.Get).Methods(http.MethodGet)
	v1.HandleFunc("/expenses/{id:[0-9]+}", expenses.Update).Methods(http.MethodPut)
	v1.HandleFunc("/expenses/{id:[0-9]+}", expenses.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/expenses/{id:[0-9]+}/receipt", expenses.UploadReceipt).Methods(http.MethodPut)

	v1.HandleFunc("/attachments/{key:.+}", attachments.Download).Methods(http.MethodGet)

	// request ids must exist before routing so 404 and 405 bodies carry them
	return RequestID(Recovery(router))
}
