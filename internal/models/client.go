package models

import (
	"strings"
	"time"
)

// Client owns locations, assets and jobs. Code is stored uppercase.
type Client struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Notes        string    `json:"notes,omitempty"`
	AddressLine1 string    `json:"address_line1,omitempty"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Postcode     string    `json:"postcode,omitempty"`
	Country      string    `json:"country,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Website      string    `json:"website,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateClientRequest is the body of POST /clients.
type CreateClientRequest struct {
	Code         string `json:"code" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=255"`
	Notes        string `json:"notes"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	Website      string `json:"website"`
}

func (r CreateClientRequest) Client() Client {
	return Client{
		Code:         NormalizeCode(r.Code),
		Name:         strings.TrimSpace(r.Name),
		Notes:        r.Notes,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		Postcode:     r.Postcode,
		Country:      r.Country,
		ContactName:  r.ContactName,
		Phone:        r.Phone,
		Email:        r.Email,
		Website:      r.Website,
	}
}

// NormalizeCode trims and uppercases a client or supplier code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
