package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// BOMItem is what a BOM line points at: either a catalogued Part or a
// free-text description. Exactly one of the two.
type BOMItem interface {
	isBOMItem()
}

// PartRef points a BOM line at a catalogued Part.
type PartRef struct {
	PartID int64
}

// FreeText describes a part that is not in the catalogue.
type FreeText struct {
	Name   string
	Number string
}

func (PartRef) isBOMItem()  {}
func (FreeText) isBOMItem() {}

const DefaultUnit = "ea"

type BOMLine struct {
	Item  BOMItem
	Qty   decimal.Decimal
	Unit  string
	Notes string
}

// PartID returns the referenced part id, if the line references one.
func (l BOMLine) PartID() (int64, bool) {
	if ref, ok := l.Item.(PartRef); ok {
		return ref.PartID, true
	}
	return 0, false
}

func (l BOMLine) Validate() error {
	switch it := l.Item.(type) {
	case PartRef:
		if it.PartID <= 0 {
			return errors.New("bom line part reference is invalid")
		}
	case FreeText:
		if strings.TrimSpace(it.Name) == "" && strings.TrimSpace(it.Number) == "" {
			return errors.New("bom line needs a part or a part name")
		}
	default:
		return errors.New("bom line needs a part or a part name")
	}
	if l.Qty.IsNegative() {
		return errors.New("bom line qty must be >= 0")
	}
	return nil
}

type bomLineJSON struct {
	PartID   *int64          `json:"part_id,omitempty"`
	PartName string          `json:"part_name,omitempty"`
	PartNo   string          `json:"part_no,omitempty"`
	Qty      decimal.Decimal `json:"qty"`
	Unit     string          `json:"unit"`
	Notes    string          `json:"notes,omitempty"`
}

func (l BOMLine) MarshalJSON() ([]byte, error) {
	out := bomLineJSON{Qty: l.Qty, Unit: l.Unit, Notes: l.Notes}
	switch it := l.Item.(type) {
	case PartRef:
		id := it.PartID
		out.PartID = &id
	case FreeText:
		out.PartName = it.Name
		out.PartNo = it.Number
	}
	return json.Marshal(out)
}

func (l *BOMLine) UnmarshalJSON(data []byte) error {
	var in bomLineJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.PartID != nil {
		l.Item = PartRef{PartID: *in.PartID}
	} else {
		l.Item = FreeText{Name: in.PartName, Number: in.PartNo}
	}
	l.Qty = in.Qty
	l.Unit = in.Unit
	if l.Unit == "" {
		l.Unit = DefaultUnit
	}
	l.Notes = in.Notes
	return nil
}

// BOM is an ordered list of BOM lines stored as JSONB.
type BOM []BOMLine

// PartIDs returns the distinct part ids referenced by the BOM.
func (b BOM) PartIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, line := range b {
		if id, ok := line.PartID(); ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (b BOM) Validate() error {
	for _, line := range b {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b BOM) Value() (driver.Value, error) { return jsonValue(b, len(b) == 0) }

func (b *BOM) Scan(src any) error { return jsonScan(src, b) }
