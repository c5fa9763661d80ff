package locations

import (
	"context"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
)

// UpsertInput is an imported location whose references are already
// resolved. Parent is set for areas only.
type UpsertInput struct {
	ClientID int64
	Kind     models.LocationKind
	Code     string
	Name     string
	Parent   *models.Location
}

// Upsert writes in keyed by (client, code). A node found under a
// different parent is moved there and its subtree re-pathed. It reports
// whether a new location was inserted.
func Upsert(ctx context.Context, st store.Store, in UpsertInput) (*models.Location, bool, error) {
	if in.Kind == models.LocationArea && in.Parent == nil {
		return nil, false, apperr.Validation("area requires parent_code")
	}
	if in.Kind == models.LocationSite {
		in.Parent = nil
	}

	existing, err := findForUpsert(ctx, st, in)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		loc := &models.Location{ClientID: in.ClientID, Kind: in.Kind, Code: in.Code, Name: in.Name, Path: []int64{}}
		if in.Parent != nil {
			loc.ParentID = &in.Parent.ID
			loc.Path = in.Parent.ChildPath()
		}
		if err := st.CreateLocation(ctx, loc); err != nil {
			return nil, false, err
		}
		return loc, true, nil
	}

	if existing.Kind == models.LocationSite && in.Kind == models.LocationArea {
		n, err := st.CountLocations(ctx, store.LocationFilter{ParentID: &existing.ID})
		if err != nil {
			return nil, false, err
		}
		if n > 0 {
			return nil, false, apperr.InvalidMove("Location has children; it cannot become an area")
		}
	}
	if in.Parent != nil && (in.Parent.ID == existing.ID || in.Parent.HasAncestor(existing.ID)) {
		return nil, false, apperr.InvalidMove("Cannot move under own descendant")
	}

	reparent := !sameParent(existing.ParentID, in.Parent)
	existing.Kind = in.Kind
	existing.Name = in.Name
	if reparent {
		if in.Parent == nil {
			existing.ParentID = nil
			existing.Path = []int64{}
		} else {
			existing.ParentID = &in.Parent.ID
			existing.Path = in.Parent.ChildPath()
		}
	}
	if err := st.UpdateLocation(ctx, existing); err != nil {
		return nil, false, err
	}
	if reparent {
		if _, err := repathDescendants(ctx, st, existing); err != nil {
			return nil, false, err
		}
	}
	return existing, false, nil
}

// findForUpsert prefers an exact (client, parent, code) match and falls
// back to a unique (client, code) match.
func findForUpsert(ctx context.Context, st store.Store, in UpsertInput) (*models.Location, error) {
	matches, err := st.ListLocations(ctx, store.LocationFilter{ClientID: in.ClientID, Code: in.Code})
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if sameParent(matches[i].ParentID, in.Parent) {
			return &matches[i], nil
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, apperr.Ambiguous("ambiguous location code within client: " + in.Code)
	}
}

func sameParent(id *int64, parent *models.Location) bool {
	if id == nil || parent == nil {
		return id == nil && parent == nil
	}
	return *id == parent.ID
}
