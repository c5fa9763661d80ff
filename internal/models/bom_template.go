package models

import "time"

// BomTemplate is a reusable BOM. A nil ClientID makes it global.
type BomTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ClientID  *int64    `json:"client_id"`
	Category  string    `json:"category,omitempty"`
	Lines     BOM       `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailableTo reports whether the template may be applied to an asset of
// clientID.
func (t *BomTemplate) AvailableTo(clientID int64) bool {
	return t.ClientID == nil || *t.ClientID == clientID
}

type CreateBomTemplateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	ClientID *int64 `json:"client_id,omitempty"`
	Category string `json:"category"`
	Lines    BOM    `json:"lines"`
}
