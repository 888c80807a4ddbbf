package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/utils"
)

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type vehicleRepository struct{ s *session }

func (r *vehicleRepository) checkUnique(d *data, v *domain.Vehicle) error {
	for id, other := range d.vehicles {
		if id != v.ID && strings.EqualFold(other.Plate, v.Plate) {
			return domain.ErrDuplicate.WithMessage("vehicle: plate %s already in use", v.Plate)
		}
	}
	return nil
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	return r.s.do(func(d *data) error {
		if err := r.checkUnique(d, v); err != nil {
			return err
		}
		v.ID = d.nextID("vehicle")
		v.CreatedAt = time.Now()
		d.vehicles[v.ID] = *v
		return nil
	})
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.do(func(d *data) error {
		v, ok := d.vehicles[id]
		if !ok {
			return domain.NotFound("vehicle", id)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *vehicleRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	return r.s.do(func(d *data) error {
		old, ok := d.vehicles[v.ID]
		if !ok {
			return domain.NotFound("vehicle", v.ID)
		}
		if err := r.checkUnique(d, v); err != nil {
			return err
		}
		v.CreatedAt = old.CreatedAt
		d.vehicles[v.ID] = *v
		return nil
	})
}

func (r *vehicleRepository) Delete(ctx context.Context, id int32) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.vehicles[id]; !ok {
			return domain.NotFound("vehicle", id)
		}
		for _, rt := range d.rentals {
			if rt.VehicleID != nil && *rt.VehicleID == id {
				return domain.ErrReferenced.WithMessage("vehicle %d is referenced by other records", id)
			}
		}
		for eid, e := range d.expenses {
			if e.VehicleID == id {
				delete(d.expenses, eid)
			}
		}
		delete(d.vehicles, id)
		return nil
	})
}

func (r *vehicleRepository) List(ctx context.Context, q string, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.s.do(func(d *data) error {
		for _, v := range d.vehicles {
			if q != "" && !contains(v.Model, q) && !contains(v.Plate, q) && !contains(v.Make, q) {
				continue
			}
			if status != "" && v.Status != status {
				continue
			}
			out = append(out, v)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status > out[j].Status
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *vehicleRepository) Count(ctx context.Context) (int32, error) {
	var n int32
	err := r.s.do(func(d *data) error {
		n = int32(len(d.vehicles))
		return nil
	})
	return n, err
}

func (r *vehicleRepository) CountByStatus(ctx context.Context, status domain.VehicleStatus) (int32, error) {
	var n int32
	err := r.s.do(func(d *data) error {
		for _, v := range d.vehicles {
			if v.Status == status {
				n++
			}
		}
		return nil
	})
	return n, err
}

type clientRepository struct{ s *session }

func (r *clientRepository) checkUnique(d *data, c *domain.Client) error {
	for id, other := range d.clients {
		if id == c.ID {
			continue
		}
		if other.TaxID == c.TaxID {
			return domain.ErrDuplicate.WithMessage("client: tax id %s already in use", c.TaxID)
		}
		if c.LicenseNumber != "" && other.LicenseNumber == c.LicenseNumber {
			return domain.ErrDuplicate.WithMessage("client: license number %s already in use", c.LicenseNumber)
		}
	}
	return nil
}

func (r *clientRepository) Create(ctx context.Context, c *domain.Client) error {
	return r.s.do(func(d *data) error {
		if err := r.checkUnique(d, c); err != nil {
			return err
		}
		c.ID = d.nextID("client")
		c.CreatedAt = time.Now()
		d.clients[c.ID] = copyClient(*c)
		return nil
	})
}

func (r *clientRepository) GetByID(ctx context.Context, id int32) (*domain.Client, error) {
	var out *domain.Client
	err := r.s.do(func(d *data) error {
		c, ok := d.clients[id]
		if !ok {
			return domain.NotFound("client", id)
		}
		c = copyClient(c)
		out = &c
		return nil
	})
	return out, err
}

func (r *clientRepository) Update(ctx context.Context, c *domain.Client) error {
	return r.s.do(func(d *data) error {
		old, ok := d.clients[c.ID]
		if !ok {
			return domain.NotFound("client", c.ID)
		}
		if err := r.checkUnique(d, c); err != nil {
			return err
		}
		c.CreatedAt = old.CreatedAt
		d.clients[c.ID] = copyClient(*c)
		return nil
	})
}

func (r *clientRepository) Delete(ctx context.Context, id int32) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.clients[id]; !ok {
			return domain.NotFound("client", id)
		}
		for _, rt := range d.rentals {
			if rt.ClientID == id {
				return domain.ErrReferenced.WithMessage("client %d is referenced by other records", id)
			}
		}
		delete(d.clients, id)
		return nil
	})
}

func (r *clientRepository) List(ctx context.Context, q string) ([]domain.Client, error) {
	var out []domain.Client
	err := r.s.do(func(d *data) error {
		for _, c := range d.clients {
			if q != "" && !contains(c.Name, q) && !contains(c.TaxID, q) && !contains(c.LicenseNumber, q) {
				continue
			}
			out = append(out, copyClient(c))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *clientRepository) Count(ctx context.Context) (int32, error) {
	var n int32
	err := r.s.do(func(d *data) error {
		n = int32(len(d.clients))
		return nil
	})
	return n, err
}

type rentalRepository struct{ s *session }

func (r *rentalRepository) checkRefs(d *data, rt *domain.Rental) error {
	if _, ok := d.clients[rt.ClientID]; !ok {
		return domain.ErrReferenced.WithMessage("rental: client %d does not exist", rt.ClientID)
	}
	if rt.VehicleID != nil {
		if _, ok := d.vehicles[*rt.VehicleID]; !ok {
			return domain.ErrReferenced.WithMessage("rental: vehicle %d does not exist", *rt.VehicleID)
		}
	}
	return nil
}

// holds reports whether rt keeps its vehicle out of the fleet: it is active
// and has not recorded an end mileage.
func holds(rt domain.Rental) bool {
	return rt.VehicleID != nil && rt.IsActive() && rt.EndMileage == nil
}

// checkHolder keeps at most one holding rental per vehicle.
func (r *rentalRepository) checkHolder(d *data, rt *domain.Rental) error {
	if !holds(*rt) {
		return nil
	}
	for id, other := range d.rentals {
		if id != rt.ID && holds(other) && *other.VehicleID == *rt.VehicleID {
			return domain.ErrDuplicate.WithMessage("rental: vehicle %d already has an active rental", *rt.VehicleID)
		}
	}
	return nil
}

// decorate fills the joined display columns the SQL store selects.
func decorate(d *data, rt domain.Rental) domain.Rental {
	rt = copyRental(rt)
	rt.ClientName = d.clients[rt.ClientID].Name
	rt.VehiclePlate, rt.VehicleModel = "", ""
	if rt.VehicleID != nil {
		v := d.vehicles[*rt.VehicleID]
		rt.VehiclePlate, rt.VehicleModel = v.Plate, v.Model
	}
	return rt
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	return r.s.do(func(d *data) error {
		if err := r.checkRefs(d, rt); err != nil {
			return err
		}
		rt.ID = 0
		if err := r.checkHolder(d, rt); err != nil {
			return err
		}
		rt.ID = d.nextID("rental")
		rt.CreatedAt = time.Now()
		d.rentals[rt.ID] = copyRental(*rt)
		return nil
	})
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.s.do(func(d *data) error {
		rt, ok := d.rentals[id]
		if !ok {
			return domain.NotFound("rental", id)
		}
		rt = decorate(d, rt)
		out = &rt
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no extra locking: transactions already hold the
// store mutex.
func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	return r.GetByID(ctx, id)
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	return r.s.do(func(d *data) error {
		old, ok := d.rentals[rt.ID]
		if !ok {
			return domain.NotFound("rental", rt.ID)
		}
		if err := r.checkRefs(d, rt); err != nil {
			return err
		}
		if err := r.checkHolder(d, rt); err != nil {
			return err
		}
		stored := copyRental(*rt)
		stored.PaidWeeks = old.PaidWeeks
		stored.CreatedAt = old.CreatedAt
		d.rentals[rt.ID] = stored
		return nil
	})
}

func (r *rentalRepository) HolderOf(ctx context.Context, vehicleID int32) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.s.do(func(d *data) error {
		for _, rt := range d.rentals {
			if holds(rt) && *rt.VehicleID == vehicleID {
				rt = decorate(d, rt)
				out = &rt
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *rentalRepository) IncrementPaidWeeks(ctx context.Context, id, expected int32) error {
	return r.s.do(func(d *data) error {
		rt, ok := d.rentals[id]
		if !ok || rt.PaidWeeks != expected || rt.PaidWeeks >= rt.Weeks || !rt.IsActive() {
			return domain.ErrConcurrentUpdate.WithMessage("rental %d was modified by another request", id)
		}
		rt.PaidWeeks++
		d.rentals[id] = rt
		return nil
	})
}

func (r *rentalRepository) Delete(ctx context.Context, id int32) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.rentals[id]; !ok {
			return domain.NotFound("rental", id)
		}
		for pid, p := range d.payments {
			if p.RentalID == id {
				delete(d.payments, pid)
			}
		}
		delete(d.rentals, id)
		return nil
	})
}

func (r *rentalRepository) filter(keep func(d *data, rt domain.Rental) bool) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.s.do(func(d *data) error {
		for _, rt := range d.rentals {
			rt = decorate(d, rt)
			if keep(d, rt) {
				out = append(out, rt)
			}
		}
		return nil
	})
	return out, err
}

func (r *rentalRepository) List(ctx context.Context, q string, status domain.RentalStatus) ([]domain.Rental, error) {
	out, err := r.filter(func(d *data, rt domain.Rental) bool {
		if q != "" && !contains(rt.ClientName, q) && !contains(rt.VehiclePlate, q) && !contains(rt.VehicleModel, q) {
			return false
		}
		return status == "" || rt.Status == status
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *rentalRepository) ListStartedBefore(ctx context.Context, before time.Time) ([]domain.Rental, error) {
	out, err := r.filter(func(d *data, rt domain.Rental) bool {
		return rt.IsActive() || rt.StartAt.Before(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, err
}

func (r *rentalRepository) CountByClient(ctx context.Context, clientID int32) (int32, error) {
	out, err := r.filter(func(d *data, rt domain.Rental) bool { return rt.ClientID == clientID })
	return int32(len(out)), err
}

func (r *rentalRepository) CountByVehicle(ctx context.Context, vehicleID int32) (int32, error) {
	out, err := r.filter(func(d *data, rt domain.Rental) bool {
		return rt.VehicleID != nil && *rt.VehicleID == vehicleID
	})
	return int32(len(out)), err
}

type paymentRepository struct{ s *session }

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.rentals[p.RentalID]; !ok {
			return domain.ErrReferenced.WithMessage("payment: rental %d does not exist", p.RentalID)
		}
		p.ID = d.nextID("payment")
		d.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.s.do(func(d *data) error {
		for _, p := range d.payments {
			if p.RentalID == rentalID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].PaidAt.Before(out[j].PaidAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *paymentRepository) LastByRental(ctx context.Context, rentalID int32) (*domain.Payment, error) {
	payments, err := r.ListByRental(ctx, rentalID)
	if err != nil || len(payments) == 0 {
		return nil, err
	}
	last := payments[len(payments)-1]
	return &last, nil
}

type expenseRepository struct{ s *session }

func (r *expenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.vehicles[e.VehicleID]; !ok {
			return domain.ErrReferenced.WithMessage("expense: vehicle %d does not exist", e.VehicleID)
		}
		e.ID = d.nextID("expense")
		d.expenses[e.ID] = *e
		return nil
	})
}

func (r *expenseRepository) GetByID(ctx context.Context, id int32) (*domain.Expense, error) {
	var out *domain.Expense
	err := r.s.do(func(d *data) error {
		e, ok := d.expenses[id]
		if !ok {
			return domain.NotFound("expense", id)
		}
		e.VehiclePlate = d.vehicles[e.VehicleID].Plate
		out = &e
		return nil
	})
	return out, err
}

func (r *expenseRepository) Update(ctx context.Context, e *domain.Expense) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.expenses[e.ID]; !ok {
			return domain.NotFound("expense", e.ID)
		}
		if _, ok := d.vehicles[e.VehicleID]; !ok {
			return domain.ErrReferenced.WithMessage("expense: vehicle %d does not exist", e.VehicleID)
		}
		d.expenses[e.ID] = *e
		return nil
	})
}

func (r *expenseRepository) Delete(ctx context.Context, id int32) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.expenses[id]; !ok {
			return domain.NotFound("expense", id)
		}
		delete(d.expenses, id)
		return nil
	})
}

func (r *expenseRepository) collect(keep func(e domain.Expense) bool) ([]domain.Expense, error) {
	var out []domain.Expense
	err := r.s.do(func(d *data) error {
		for _, e := range d.expenses {
			if keep(e) {
				e.VehiclePlate = d.vehicles[e.VehicleID].Plate
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *expenseRepository) List(ctx context.Context, f domain.ExpenseFilter) ([]domain.Expense, error) {
	out, err := r.collect(func(e domain.Expense) bool {
		switch {
		case f.VehicleID > 0 && e.VehicleID != f.VehicleID:
			return false
		case f.Category != "" && e.Category != f.Category:
			return false
		case f.Month > 0 && int(e.Date.Month()) != f.Month:
			return false
		case f.Year > 0 && e.Date.Year() != f.Year:
			return false
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *expenseRepository) ListByDateRange(ctx context.Context, w domain.DateWindow) ([]domain.Expense, error) {
	out, err := r.collect(func(e domain.Expense) bool {
		return utils.InWindow(w, e.Date)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (r *expenseRepository) SumByVehicle(ctx context.Context, vehicleID int32) (decimal.Decimal, error) {
	out, err := r.collect(func(e domain.Expense) bool { return e.VehicleID == vehicleID })
	total := decimal.Zero
	for _, e := range out {
		total = total.Add(e.Amount)
	}
	return total, err
}

func (r *expenseRepository) Years(ctx context.Context) ([]int, error) {
	out, err := r.collect(func(e domain.Expense) bool { return true })
	seen := map[int]bool{}
	var years []int
	for _, e := range out {
		if !seen[e.Date.Year()] {
			seen[e.Date.Year()] = true
			years = append(years, e.Date.Year())
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, err
}
