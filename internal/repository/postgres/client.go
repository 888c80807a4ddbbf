package postgres

import (
	"context"
	"time"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

type clientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) repository.ClientRepository {
	return &clientRepository{db: db}
}

const clientColumns = `id, name, tax_id, birth_date, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''),
	COALESCE(license_number, ''), license_expiry, COALESCE(document_key, ''), COALESCE(notes, ''), created_at`

func scanClient(s rowScanner, c *domain.Client) error {
	return s.Scan(&c.ID, &c.Name, &c.TaxID, &c.BirthDate, &c.Phone, &c.Email, &c.Address,
		&c.LicenseNumber, &c.LicenseExpiry, &c.DocumentKey, &c.Notes, &c.CreatedAt)
}

func (r *clientRepository) Create(ctx context.Context, c *domain.Client) error {
	query := `INSERT INTO clients (name, tax_id, birth_date, phone, email, address, license_number, license_expiry, document_key, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	c.CreatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query, c.Name, c.TaxID, c.BirthDate, nullString(c.Phone), nullString(c.Email), c.Address,
		nullString(c.LicenseNumber), c.LicenseExpiry, nullString(c.DocumentKey), c.Notes, c.CreatedAt).Scan(&c.ID)
	return mapError(err, "client", c.ID)
}

func (r *clientRepository) GetByID(ctx context.Context, id int32) (*domain.Client, error) {
	c := &domain.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	if err := scanClient(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		return nil, mapError(err, "client", id)
	}
	return c, nil
}

func (r *clientRepository) Update(ctx context.Context, c *domain.Client) error {
	query := `UPDATE clients SET name=$1, tax_id=$2, birth_date=$3, phone=$4, email=$5, address=$6,
	          license_number=$7, license_expiry=$8, document_key=$9, notes=$10 WHERE id=$11`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.TaxID, c.BirthDate, nullString(c.Phone), nullString(c.Email), c.Address,
		nullString(c.LicenseNumber), c.LicenseExpiry, nullString(c.DocumentKey), c.Notes, c.ID)
	if err != nil {
		return mapError(err, "client", c.ID)
	}
	return requireAffected(res, "client", c.ID)
}

func (r *clientRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "client", id)
	}
	return requireAffected(res, "client", id)
}

func (r *clientRepository) List(ctx context.Context, q string) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []interface{}{}
	if q != "" {
		query += ` WHERE name ILIKE $1 OR tax_id ILIKE $1 OR license_number ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientRepository) Count(ctx context.Context) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM clients`).Scan(&count)
	return count, err
}
