// Package memory is an in-process Entity Store used by tests and local runs.
// It enforces the same unique and foreign-key rules as the SQL schema.
package memory

import (
	"context"
	"sync"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

type data struct {
	vehicles map[int32]domain.Vehicle
	clients  map[int32]domain.Client
	rentals  map[int32]domain.Rental
	payments map[int32]domain.Payment
	expenses map[int32]domain.Expense
	seq      map[string]int32
}

func newData() *data {
	return &data{
		vehicles: map[int32]domain.Vehicle{},
		clients:  map[int32]domain.Client{},
		rentals:  map[int32]domain.Rental{},
		payments: map[int32]domain.Payment{},
		expenses: map[int32]domain.Expense{},
		seq:      map[string]int32{},
	}
}

func (d *data) nextID(entity string) int32 {
	d.seq[entity]++
	return d.seq[entity]
}

// clone copies every table. Stored values never share pointers with callers,
// so a shallow copy of each row is enough.
func (d *data) clone() *data {
	cp := newData()
	for k, v := range d.vehicles {
		cp.vehicles[k] = v
	}
	for k, v := range d.clients {
		cp.clients[k] = v
	}
	for k, v := range d.rentals {
		cp.rentals[k] = v
	}
	for k, v := range d.payments {
		cp.payments[k] = v
	}
	for k, v := range d.expenses {
		cp.expenses[k] = v
	}
	for k, v := range d.seq {
		cp.seq[k] = v
	}
	return cp
}

// Store serializes every operation behind one mutex. Transactions hold the
// mutex for their whole duration and restore a snapshot when they fail.
type Store struct {
	mu sync.Mutex
	d  *data
	repository.Repositories
}

func NewStore() *Store {
	s := &Store{d: newData()}
	s.Repositories = newRepositories(&session{store: s})
	return s
}

type session struct {
	store *Store
	inTx  bool
}

func (s *session) do(fn func(d *data) error) error {
	if !s.inTx {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
	}
	return fn(s.store.d)
}

func newRepositories(s *session) repository.Repositories {
	return repository.Repositories{
		Vehicles: &vehicleRepository{s},
		Clients:  &clientRepository{s},
		Rentals:  &rentalRepository{s},
		Payments: &paymentRepository{s},
		Expenses: &expenseRepository{s},
	}
}

// WithinTx implements repository.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(ctx, newRepositories(&session{store: s, inTx: true})); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyRental(r domain.Rental) domain.Rental {
	r.VehicleID = copyPtr(r.VehicleID)
	r.EndMileage = copyPtr(r.EndMileage)
	r.EndAt = copyPtr(r.EndAt)
	return r
}

func copyClient(c domain.Client) domain.Client {
	c.LicenseExpiry = copyPtr(c.LicenseExpiry)
	return c
}
