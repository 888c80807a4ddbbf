package domain

import "time"

const DefaultClientNotes = "No notes"

type Client struct {
	ID            int32      `json:"id"`
	Name          string     `json:"name"`
	TaxID         string     `json:"tax_id"`
	BirthDate     time.Time  `json:"birth_date"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Address       string     `json:"address,omitempty"`
	LicenseNumber string     `json:"license_number"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`
	DocumentKey   string     `json:"document_key,omitempty"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
}
