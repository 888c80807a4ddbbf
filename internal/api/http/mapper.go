package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/service"
	"locar-backend/internal/utils"
)

// Date is a calendar date encoded as yyyy-mm-dd.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(utils.DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(utils.DateLayout))
}

func datePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// presenter renders money with the configured format. Amounts are always
// sent twice: the fixed-point value and a display string.
type presenter struct {
	money utils.MoneyFormat
}

func (p presenter) fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (p presenter) display(d decimal.Decimal) string {
	return p.money.Format(d)
}

type vehicleResponse struct {
	ID               int32                `json:"id"`
	Plate            string               `json:"plate"`
	Make             string               `json:"make"`
	Model            string               `json:"model"`
	Year             int32                `json:"year"`
	Chassis          string               `json:"chassis,omitempty"`
	Mileage          int32                `json:"mileage"`
	FipeValue        string               `json:"fipe_value"`
	FipeValueDisplay string               `json:"fipe_value_display"`
	Renavam          string               `json:"renavam,omitempty"`
	Status           domain.VehicleStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
}

func (p presenter) vehicle(v *domain.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:               v.ID,
		Plate:            v.Plate,
		Make:             v.Make,
		Model:            v.Model,
		Year:             v.Year,
		Chassis:          v.Chassis,
		Mileage:          v.Mileage,
		FipeValue:        p.fixed(v.FipeValue),
		FipeValueDisplay: p.display(v.FipeValue),
		Renavam:          v.Renavam,
		Status:           v.Status,
		CreatedAt:        v.CreatedAt,
	}
}

type clientResponse struct {
	ID            int32     `json:"id"`
	Name          string    `json:"name"`
	TaxID         string    `json:"tax_id"`
	BirthDate     Date      `json:"birth_date"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	LicenseNumber string    `json:"license_number"`
	LicenseExpiry *Date     `json:"license_expiry,omitempty"`
	DocumentKey   string    `json:"document_key,omitempty"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

func mapClient(c *domain.Client) clientResponse {
	return clientResponse{
		ID:            c.ID,
		Name:          c.Name,
		TaxID:         c.TaxID,
		BirthDate:     Date{Time: c.BirthDate},
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		LicenseNumber: c.LicenseNumber,
		LicenseExpiry: datePtr(c.LicenseExpiry),
		DocumentKey:   c.DocumentKey,
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt,
	}
}

type rentalResponse struct {
	ID                 int32                `json:"id"`
	ClientID           int32                `json:"client_id"`
	ClientName         string               `json:"client_name,omitempty"`
	VehicleID          *int32               `json:"vehicle_id,omitempty"`
	VehiclePlate       string               `json:"vehicle_plate,omitempty"`
	VehicleModel       string               `json:"vehicle_model,omitempty"`
	StartAt            time.Time            `json:"start_at"`
	EndAt              *time.Time           `json:"end_at,omitempty"`
	StartMileage       int32                `json:"start_mileage"`
	EndMileage         *int32               `json:"end_mileage,omitempty"`
	WeeklyRate         string               `json:"weekly_rate"`
	WeeklyRateDisplay  string               `json:"weekly_rate_display"`
	Weeks              int32                `json:"weeks"`
	PaidWeeks          int32                `json:"paid_weeks"`
	RemainingWeeks     int32                `json:"remaining_weeks"`
	Deposit            string               `json:"deposit"`
	DepositDisplay     string               `json:"deposit_display"`
	DepositStatus      domain.DepositStatus `json:"deposit_status"`
	PaymentMode        domain.PaymentMode   `json:"payment_mode"`
	Status             domain.RentalStatus  `json:"status"`
	TotalValue         string               `json:"total_value"`
	TotalValueDisplay  string               `json:"total_value_display"`
	Installment        string               `json:"installment"`
	InstallmentDisplay string               `json:"installment_display"`
	Collected          string               `json:"collected"`
	CollectedDisplay   string               `json:"collected_display"`
	Balance            string               `json:"balance"`
	BalanceDisplay     string               `json:"balance_display"`
	Notes              string               `json:"notes"`
	DocumentKey        string               `json:"document_key,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

func (p presenter) rental(rt *domain.Rental) rentalResponse {
	f := utils.Financials(rt)
	return rentalResponse{
		ID:                 rt.ID,
		ClientID:           rt.ClientID,
		ClientName:         rt.ClientName,
		VehicleID:          rt.VehicleID,
		VehiclePlate:       rt.VehiclePlate,
		VehicleModel:       rt.VehicleModel,
		StartAt:            rt.StartAt,
		EndAt:              rt.EndAt,
		StartMileage:       rt.StartMileage,
		EndMileage:         rt.EndMileage,
		WeeklyRate:         p.fixed(rt.WeeklyRate),
		WeeklyRateDisplay:  p.display(rt.WeeklyRate),
		Weeks:              rt.Weeks,
		PaidWeeks:          rt.PaidWeeks,
		RemainingWeeks:     utils.RemainingWeeks(rt),
		Deposit:            p.fixed(rt.Deposit),
		DepositDisplay:     p.display(rt.Deposit),
		DepositStatus:      rt.DepositStatus,
		PaymentMode:        rt.PaymentMode,
		Status:             rt.Status,
		TotalValue:         p.fixed(f.TotalValue),
		TotalValueDisplay:  p.display(f.TotalValue),
		Installment:        p.fixed(f.Installment),
		InstallmentDisplay: p.display(f.Installment),
		Collected:          p.fixed(f.Collected),
		CollectedDisplay:   p.display(f.Collected),
		Balance:            p.fixed(f.Outstanding),
		BalanceDisplay:     p.display(f.Outstanding),
		Notes:              rt.Notes,
		DocumentKey:        rt.DocumentKey,
		CreatedAt:          rt.CreatedAt,
	}
}

func (p presenter) rentals(items []domain.Rental) []rentalResponse {
	out := make([]rentalResponse, 0, len(items))
	for i := range items {
		out = append(out, p.rental(&items[i]))
	}
	return out
}

type paymentResponse struct {
	ID            int32     `json:"id"`
	RentalID      int32     `json:"rental_id"`
	Week          int32     `json:"week"`
	Amount        string    `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	PaidAt        time.Time `json:"paid_at"`
}

func (p presenter) payment(pm *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            pm.ID,
		RentalID:      pm.RentalID,
		Week:          pm.Week,
		Amount:        p.fixed(pm.Amount),
		AmountDisplay: p.display(pm.Amount),
		PaidAt:        pm.PaidAt,
	}
}

type paymentResultResponse struct {
	Rental    rentalResponse   `json:"rental"`
	Payment   *paymentResponse `json:"payment,omitempty"`
	FullyPaid bool             `json:"fully_paid"`
	Message   string           `json:"message"`
}

func (p presenter) paymentResult(res *service.PaymentResult) paymentResultResponse {
	out := paymentResultResponse{
		Rental:    p.rental(res.Rental),
		FullyPaid: res.FullyPaid,
		Message:   res.Message,
	}
	if res.Payment != nil {
		pm := p.payment(res.Payment)
		out.Payment = &pm
	}
	return out
}

type installmentResponse struct {
	Week          int32  `json:"week"`
	DueDate       Date   `json:"due_date"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Paid          bool   `json:"paid"`
}

type scheduleResponse struct {
	Rental       rentalResponse        `json:"rental"`
	Installments []installmentResponse `json:"installments"`
	NextDueDate  *Date                 `json:"next_due_date,omitempty"`
	DueStatus    domain.DueStatus      `json:"due_status,omitempty"`
}

func (p presenter) schedule(v *service.ScheduleView) scheduleResponse {
	out := scheduleResponse{
		Rental:       p.rental(v.Rental),
		Installments: make([]installmentResponse, 0, len(v.Installments)),
		NextDueDate:  datePtr(v.NextDueDate),
		DueStatus:    v.DueStatus,
	}
	for _, in := range v.Installments {
		out.Installments = append(out.Installments, installmentResponse{
			Week:          in.Week,
			DueDate:       Date{Time: in.DueDate},
			Amount:        p.fixed(in.Amount),
			AmountDisplay: p.display(in.Amount),
			Paid:          in.Paid,
		})
	}
	return out
}

type receivableResponse struct {
	Rental         rentalResponse   `json:"rental"`
	NextDueDate    Date             `json:"next_due_date"`
	DueStatus      domain.DueStatus `json:"due_status"`
	TotalPaid      string           `json:"total_paid"`
	TotalPaidDisp  string           `json:"total_paid_display"`
	Balance        string           `json:"balance"`
	BalanceDisplay string           `json:"balance_display"`
	LastPaymentAt  *time.Time       `json:"last_payment_at,omitempty"`
	RemainingWeeks int32            `json:"remaining_weeks"`
}

type receivableGroupResponse struct {
	Weekday      int                  `json:"weekday"`
	Name         string               `json:"name"`
	Total        string               `json:"total"`
	TotalDisplay string               `json:"total_display"`
	Items        []receivableResponse `json:"items"`
}

func (p presenter) receivables(groups []domain.ReceivableGroup) []receivableGroupResponse {
	out := make([]receivableGroupResponse, 0, len(groups))
	for _, g := range groups {
		rg := receivableGroupResponse{
			Weekday:      g.Weekday,
			Name:         g.Name,
			Total:        p.fixed(g.Total),
			TotalDisplay: p.display(g.Total),
			Items:        make([]receivableResponse, 0, len(g.Items)),
		}
		for i := range g.Items {
			item := &g.Items[i]
			rg.Items = append(rg.Items, receivableResponse{
				Rental:         p.rental(&item.Rental),
				NextDueDate:    Date{Time: item.NextDueDate},
				DueStatus:      item.DueStatus,
				TotalPaid:      p.fixed(item.TotalPaid),
				TotalPaidDisp:  p.display(item.TotalPaid),
				Balance:        p.fixed(item.Balance),
				BalanceDisplay: p.display(item.Balance),
				LastPaymentAt:  item.LastPaymentAt,
				RemainingWeeks: item.RemainingWeeks,
			})
		}
		out = append(out, rg)
	}
	return out
}

type summaryResponse struct {
	TotalReceivable         string `json:"total_receivable"`
	TotalReceivableDisplay  string `json:"total_receivable_display"`
	TotalCollected          string `json:"total_collected"`
	TotalCollectedDisplay   string `json:"total_collected_display"`
	TotalOutstanding        string `json:"total_outstanding"`
	TotalOutstandingDisplay string `json:"total_outstanding_display"`
	TotalExpenses           string `json:"total_expenses"`
	TotalExpensesDisplay    string `json:"total_expenses_display"`
	NetProfit               string `json:"net_profit"`
	NetProfitDisplay        string `json:"net_profit_display"`
}

type weekdayEntryResponse struct {
	RentalID           int32            `json:"rental_id"`
	ClientName         string           `json:"client_name"`
	VehicleModel       string           `json:"vehicle_model"`
	NextDueDate        Date             `json:"next_due_date"`
	DueStatus          domain.DueStatus `json:"due_status,omitempty"`
	Installment        string           `json:"installment"`
	InstallmentDisplay string           `json:"installment_display"`
	PaidWeeks          int32            `json:"paid_weeks"`
	RemainingWeeks     int32            `json:"remaining_weeks"`
	Collected          string           `json:"collected"`
	CollectedDisplay   string           `json:"collected_display"`
}

type weekdayGroupResponse struct {
	Weekday int                    `json:"weekday"`
	Name    string                 `json:"name"`
	Entries []weekdayEntryResponse `json:"entries"`
}

type dashboardResponse struct {
	Start          Date                   `json:"start"`
	End            Date                   `json:"end"`
	Summary        summaryResponse        `json:"summary"`
	ByWeekday      []weekdayGroupResponse `json:"by_weekday"`
	ChartLabels    []string               `json:"chart_labels"`
	ChartCounts    []int                  `json:"chart_counts"`
	TotalVehicles  int32                  `json:"total_vehicles"`
	RentedVehicles int32                  `json:"rented_vehicles"`
	RentalCount    int32                  `json:"rental_count"`
	TotalClients   int32                  `json:"total_clients"`
}

func (p presenter) dashboard(d *domain.Dashboard) dashboardResponse {
	s := d.Summary
	out := dashboardResponse{
		Start: Date{Time: d.Window.Start},
		End:   Date{Time: d.Window.End},
		Summary: summaryResponse{
			TotalReceivable:         p.fixed(s.TotalReceivable),
			TotalReceivableDisplay:  p.display(s.TotalReceivable),
			TotalCollected:          p.fixed(s.TotalCollected),
			TotalCollectedDisplay:   p.display(s.TotalCollected),
			TotalOutstanding:        p.fixed(s.TotalOutstanding),
			TotalOutstandingDisplay: p.display(s.TotalOutstanding),
			TotalExpenses:           p.fixed(s.TotalExpenses),
			TotalExpensesDisplay:    p.display(s.TotalExpenses),
			NetProfit:               p.fixed(s.NetProfit),
			NetProfitDisplay:        p.display(s.NetProfit),
		},
		ByWeekday:      make([]weekdayGroupResponse, 0, len(d.ByWeekday)),
		ChartLabels:    d.ChartLabels,
		ChartCounts:    d.ChartCounts,
		TotalVehicles:  d.TotalVehicles,
		RentedVehicles: d.RentedVehicles,
		RentalCount:    d.RentalCount,
		TotalClients:   d.TotalClients,
	}
	if out.ChartLabels == nil {
		out.ChartLabels = []string{}
		out.ChartCounts = []int{}
	}
	for _, g := range d.ByWeekday {
		wg := weekdayGroupResponse{Weekday: g.Weekday, Name: g.Name}
		for _, e := range g.Entries {
			wg.Entries = append(wg.Entries, weekdayEntryResponse{
				RentalID:           e.RentalID,
				ClientName:         e.ClientName,
				VehicleModel:       e.VehicleModel,
				NextDueDate:        Date{Time: e.NextDueDate},
				DueStatus:          e.DueStatus,
				Installment:        p.fixed(e.Installment),
				InstallmentDisplay: p.display(e.Installment),
				PaidWeeks:          e.PaidWeeks,
				RemainingWeeks:     e.RemainingWeeks,
				Collected:          p.fixed(e.Collected),
				CollectedDisplay:   p.display(e.Collected),
			})
		}
		out.ByWeekday = append(out.ByWeekday, wg)
	}
	return out
}

type expenseResponse struct {
	ID            int32                  `json:"id"`
	VehicleID     int32                  `json:"vehicle_id"`
	VehiclePlate  string                 `json:"vehicle_plate,omitempty"`
	Category      domain.ExpenseCategory `json:"category"`
	Description   string                 `json:"description"`
	Date          Date                   `json:"date"`
	Amount        string                 `json:"amount"`
	AmountDisplay string                 `json:"amount_display"`
	ReceiptKey    string                 `json:"receipt_key,omitempty"`
}

func (p presenter) expense(e *domain.Expense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		VehicleID:     e.VehicleID,
		VehiclePlate:  e.VehiclePlate,
		Category:      e.Category,
		Description:   e.Description,
		Date:          Date{Time: e.Date},
		Amount:        p.fixed(e.Amount),
		AmountDisplay: p.display(e.Amount),
		ReceiptKey:    e.ReceiptKey,
	}
}

type expenseListResponse struct {
	Items        []expenseResponse `json:"items"`
	Total        string            `json:"total"`
	TotalDisplay string            `json:"total_display"`
	Years        []int             `json:"years"`
}

func (p presenter) expenseListing(l *service.ExpenseListing) expenseListResponse {
	out := expenseListResponse{
		Items:        make([]expenseResponse, 0, len(l.Items)),
		Total:        p.fixed(l.Total),
		TotalDisplay: p.display(l.Total),
		Years:        l.Years,
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	for i := range l.Items {
		out.Items = append(out.Items, p.expense(&l.Items[i]))
	}
	return out
}
