package service

import (
	"context"
	"io"
	"strings"
	"time"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
	"locar-backend/internal/storage"
)

type clientService struct {
	store repository.Repositories
	files storage.AttachmentStore
	now   func() time.Time
}

func NewClientService(store repository.Repositories, files storage.AttachmentStore) ClientService {
	return &clientService{store: store, files: files, now: time.Now}
}

func validateClient(c *domain.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	c.TaxID = strings.TrimSpace(c.TaxID)
	c.LicenseNumber = strings.TrimSpace(c.LicenseNumber)
	if c.Name == "" {
		return domain.Invalid("name is required")
	}
	if c.TaxID == "" {
		return domain.Invalid("tax id is required")
	}
	if strings.TrimSpace(c.Notes) == "" {
		c.Notes = domain.DefaultClientNotes
	}
	return nil
}

func (s *clientService) CreateClient(ctx context.Context, c *domain.Client) error {
	if err := validateClient(c); err != nil {
		return err
	}
	if err := s.store.Clients.Create(ctx, c); err != nil {
		return err
	}
	logger.Info("Client created", "clientID", c.ID)
	return nil
}

func (s *clientService) GetClient(ctx context.Context, id int32) (*domain.Client, error) {
	return s.store.Clients.GetByID(ctx, id)
}

func (s *clientService) UpdateClient(ctx context.Context, c *domain.Client) error {
	current, err := s.store.Clients.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := validateClient(c); err != nil {
		return err
	}
	if c.DocumentKey == "" {
		c.DocumentKey = current.DocumentKey
	}
	return s.store.Clients.Update(ctx, c)
}

// DeleteClient refuses to remove clients that ever rented a vehicle.
func (s *clientService) DeleteClient(ctx context.Context, id int32) error {
	c, err := s.store.Clients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.store.Rentals.CountByClient(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrClientHasRentals.WithMessage("client %s has %d rentals and cannot be deleted", c.Name, count)
	}
	if err := s.store.Clients.Delete(ctx, id); err != nil {
		return err
	}
	if c.DocumentKey != "" {
		if err := s.files.Delete(ctx, c.DocumentKey); err != nil {
			logger.Warn("Failed to delete client document", "clientID", id, "error", err)
		}
	}
	logger.Info("Client deleted", "clientID", id)
	return nil
}

func (s *clientService) ListClients(ctx context.Context, query string) ([]domain.Client, error) {
	return s.store.Clients.List(ctx, strings.TrimSpace(query))
}

func (s *clientService) AttachDocument(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Client, error) {
	c, err := s.store.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := storage.NewKey("clients", filename, s.now())
	if err := s.files.Save(ctx, key, content); err != nil {
		return nil, err
	}

	previous := c.DocumentKey
	c.DocumentKey = key
	if err := s.store.Clients.Update(ctx, c); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}
	if previous != "" {
		_ = s.files.Delete(ctx, previous)
	}
	return c, nil
}
