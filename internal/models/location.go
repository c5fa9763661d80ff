package models

import (
	"strings"
	"time"
)

type LocationKind string

const (
	LocationSite LocationKind = "site"
	LocationArea LocationKind = "area"
)

// ParseLocationKind matches s case-insensitively.
func ParseLocationKind(s string) (LocationKind, bool) {
	switch LocationKind(strings.ToLower(strings.TrimSpace(s))) {
	case LocationSite:
		return LocationSite, true
	case LocationArea:
		return LocationArea, true
	}
	return "", false
}

// Location is a node of a client's site/area hierarchy. Path lists the
// ancestor ids root-first, excluding the node itself.
type Location struct {
	ID        int64        `json:"id"`
	ClientID  int64        `json:"client_id"`
	Kind      LocationKind `json:"kind"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	ParentID  *int64       `json:"parent_id"`
	Path      []int64      `json:"path"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsRoot reports whether l has no parent.
func (l *Location) IsRoot() bool { return l.ParentID == nil }

// HasAncestor reports whether id appears in l's materialized path.
func (l *Location) HasAncestor(id int64) bool {
	for _, p := range l.Path {
		if p == id {
			return true
		}
	}
	return false
}

// ChildPath is the path a direct child of l must carry.
func (l *Location) ChildPath() []int64 {
	path := make([]int64, 0, len(l.Path)+1)
	path = append(path, l.Path...)
	return append(path, l.ID)
}

// LocationNode is a Location with its nested children, as returned by
// the tree endpoint.
type LocationNode struct {
	Location
	Children []*LocationNode `json:"children"`
}

// CreateLocationRequest is the body of POST /clients/{id}/locations.
type CreateLocationRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Code     string `json:"code" validate:"required,max=64"`
	Kind     string `json:"kind" validate:"required,oneof=site area"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Notes    string `json:"notes"`
}

// UpdateLocationRequest renames a location. Parent changes go through
// MoveSubtreeRequest.
type UpdateLocationRequest struct {
	Name  *string `json:"name,omitempty"`
	Code  *string `json:"code,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

type MoveSubtreeRequest struct {
	NewParent *int64 `json:"newParent"`
}
