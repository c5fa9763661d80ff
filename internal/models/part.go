package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "USD"
	DefaultMOQ      = 1
)

// SupplierOption is one way of buying a Part.
type SupplierOption struct {
	SupplierID   int64           `json:"supplier_id"`
	SupplierSKU  string          `json:"supplier_sku,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	LeadTimeDays int             `json:"lead_time_days"`
	MOQ          int             `json:"moq"`
	Preferred    bool            `json:"preferred"`
}

type SupplierOptions []SupplierOption

func (o SupplierOptions) Value() (driver.Value, error) { return jsonValue(o, len(o) == 0) }

func (o *SupplierOptions) Scan(src any) error { return jsonScan(src, o) }

// PartInternal carries stock and costing. Stock is a single on-hand
// figure, not tracked per site.
type PartInternal struct {
	OnHand       decimal.Decimal `json:"on_hand"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	ReorderQty   decimal.Decimal `json:"reorder_qty"`
}

type Part struct {
	ID              int64           `json:"id"`
	InternalSKU     string          `json:"internal_sku"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	Unit            string          `json:"unit"`
	Notes           string          `json:"notes,omitempty"`
	SupplierOptions SupplierOptions `json:"supplier_options"`
	Internal        PartInternal    `json:"internal"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LinkSupplier replaces the option for opt.SupplierID or appends it.
// It reports whether an existing option was replaced.
func (p *Part) LinkSupplier(opt SupplierOption) bool {
	if opt.Currency == "" {
		opt.Currency = DefaultCurrency
	}
	if opt.MOQ <= 0 {
		opt.MOQ = DefaultMOQ
	}
	for i := range p.SupplierOptions {
		if p.SupplierOptions[i].SupplierID == opt.SupplierID {
			p.SupplierOptions[i] = opt
			return true
		}
	}
	p.SupplierOptions = append(p.SupplierOptions, opt)
	return false
}

// UnlinkSupplier removes every option for supplierID.
func (p *Part) UnlinkSupplier(supplierID int64) bool {
	kept := p.SupplierOptions[:0:0]
	for _, o := range p.SupplierOptions {
		if o.SupplierID != supplierID {
			kept = append(kept, o)
		}
	}
	removed := len(kept) != len(p.SupplierOptions)
	p.SupplierOptions = kept
	return removed
}

// SuppliedBy reports whether supplierID is one of the part's options.
func (p *Part) SuppliedBy(supplierID int64) bool {
	for _, o := range p.SupplierOptions {
		if o.SupplierID == supplierID {
			return true
		}
	}
	return false
}

type CreatePartRequest struct {
	InternalSKU string       `json:"internal_sku" validate:"required,max=64"`
	Name        string       `json:"name" validate:"required,max=255"`
	Category    string       `json:"category"`
	Unit        string       `json:"unit"`
	Notes       string       `json:"notes"`
	Internal    PartInternal `json:"internal"`
}

func (r CreatePartRequest) Part() Part {
	unit := strings.TrimSpace(r.Unit)
	if unit == "" {
		unit = DefaultUnit
	}
	return Part{
		InternalSKU: strings.TrimSpace(r.InternalSKU),
		Name:        strings.TrimSpace(r.Name),
		Category:    r.Category,
		Unit:        unit,
		Notes:       r.Notes,
		Internal:    r.Internal,
	}
}

// LinkPartRequest is the body of POST /suppliers/{id}/link-part.
type LinkPartRequest struct {
	PartID       int64           `json:"part_id" validate:"required"`
	SupplierSKU  string          `json:"supplier_sku"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	LeadTimeDays int             `json:"lead_time_days" validate:"gte=0"`
	MOQ          int             `json:"moq" validate:"gte=0"`
	Preferred    bool            `json:"preferred"`
}
