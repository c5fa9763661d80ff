// Package locations maintains each client's site/area hierarchy and the
// materialized ancestor path stored on every node.
package locations

import (
	"context"
	"sort"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/sirupsen/logrus"
)

type Service struct {
	store store.Store
	log   *logrus.Entry
}

func NewService(st store.Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: st, log: logger.WithField("component", "locations")}
}

// Tree returns the client's forest of sites with nested areas.
func (s *Service) Tree(ctx context.Context, clientID int64) ([]*models.LocationNode, error) {
	if _, err := s.store.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	locs, err := s.store.ListLocations(ctx, store.LocationFilter{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	return BuildTree(locs), nil
}

// BuildTree groups locs into a parent/children forest. Siblings keep the
// order of locs.
func BuildTree(locs []models.Location) []*models.LocationNode {
	nodes := make(map[int64]*models.LocationNode, len(locs))
	for i := range locs {
		nodes[locs[i].ID] = &models.LocationNode{Location: locs[i], Children: []*models.LocationNode{}}
	}
	roots := []*models.LocationNode{}
	for i := range locs {
		n := nodes[locs[i].ID]
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// SortByName orders every level of the forest by name.
func SortByName(nodes []*models.LocationNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		SortByName(n.Children)
	}
}

// Create inserts a site or an area under a site of the same client.
func (s *Service) Create(ctx context.Context, clientID int64, req models.CreateLocationRequest) (*models.Location, error) {
	var out *models.Location
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		out, err = create(ctx, tx, clientID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"location_id": out.ID, "client_id": clientID, "kind": out.Kind}).Info("location created")
	return out, nil
}

func create(ctx context.Context, st store.Store, clientID int64, req models.CreateLocationRequest) (*models.Location, error) {
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.Code)
	if name == "" {
		return nil, apperr.Required("name")
	}
	if code == "" {
		return nil, apperr.Required("code")
	}
	kind, ok := models.ParseLocationKind(req.Kind)
	if !ok {
		return nil, apperr.Validation("kind must be site or area")
	}
	if _, err := st.GetClient(ctx, clientID); err != nil {
		return nil, err
	}

	loc := &models.Location{ClientID: clientID, Kind: kind, Code: code, Name: name, Notes: req.Notes, Path: []int64{}}
	switch kind {
	case models.LocationSite:
		if req.ParentID != nil {
			return nil, apperr.Validation("Sites cannot have a parent")
		}
	case models.LocationArea:
		if req.ParentID == nil {
			return nil, apperr.Validation("Areas require a parent site")
		}
		parent, err := parentSite(ctx, st, clientID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		loc.ParentID = &parent.ID
		loc.Path = parent.ChildPath()
	}
	if err := st.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func parentSite(ctx context.Context, st store.Store, clientID, parentID int64) (*models.Location, error) {
	parent, err := st.GetLocation(ctx, parentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.RefNotFound("parent not found")
		}
		return nil, err
	}
	if parent.ClientID != clientID {
		return nil, apperr.Validation("Parent belongs to another client")
	}
	if parent.Kind != models.LocationSite {
		return nil, apperr.Validation("Parent must be a site")
	}
	return parent, nil
}

// Rename changes a location's name, code or notes. It never reparents.
func (s *Service) Rename(ctx context.Context, id int64, req models.UpdateLocationRequest) (*models.Location, error) {
	var out *models.Location
	err := s.store.InTx(ctx, func(tx store.Store) error {
		loc, err := tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return apperr.Required("name")
			}
			loc.Name = strings.TrimSpace(*req.Name)
		}
		if req.Code != nil {
			if strings.TrimSpace(*req.Code) == "" {
				return apperr.Required("code")
			}
			loc.Code = strings.TrimSpace(*req.Code)
		}
		if req.Notes != nil {
			loc.Notes = *req.Notes
		}
		if err := tx.UpdateLocation(ctx, loc); err != nil {
			return err
		}
		out = loc
		return nil
	})
	return out, err
}

// Move reparents a node and recomputes the path of the node and every
// descendant. A nil newParent moves the node to the root.
func (s *Service) Move(ctx context.Context, id int64, newParent *int64) (*models.Location, error) {
	var out *models.Location
	var moved int
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		out, moved, err = move(ctx, tx, id, newParent)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"location_id": id, "new_parent": newParent, "descendants": moved}).Info("subtree moved")
	return out, nil
}

func move(ctx context.Context, st store.Store, id int64, newParent *int64) (*models.Location, int, error) {
	node, err := st.GetLocation(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if newParent == nil {
		if node.Kind != models.LocationSite {
			return nil, 0, apperr.InvalidMove("Only sites can be moved to root")
		}
		if node.IsRoot() {
			return node, 0, nil
		}
		node.ParentID = nil
		node.Path = []int64{}
	} else {
		target, err := st.GetLocation(ctx, *newParent)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, 0, apperr.NotFound("newParent not found")
			}
			return nil, 0, err
		}
		if target.ClientID != node.ClientID {
			return nil, 0, apperr.InvalidMove("Cannot move across clients")
		}
		if target.ID == node.ID || target.HasAncestor(node.ID) {
			return nil, 0, apperr.InvalidMove("Cannot move under own descendant")
		}
		if node.Kind == models.LocationSite {
			return nil, 0, apperr.InvalidMove("Sites cannot be nested under another parent")
		}
		if target.Kind != models.LocationSite {
			return nil, 0, apperr.InvalidMove("Parent must be a site")
		}
		node.ParentID = &target.ID
		node.Path = target.ChildPath()
	}

	if err := st.UpdateLocation(ctx, node); err != nil {
		return nil, 0, err
	}
	n, err := repathDescendants(ctx, st, node)
	if err != nil {
		return nil, 0, err
	}
	return node, n, nil
}

// repathDescendants walks the subtree under root breadth-first and sets
// each child's path from its freshly updated parent. It returns the
// number of descendants rewritten.
func repathDescendants(ctx context.Context, st store.Store, root *models.Location) (int, error) {
	visited := map[int64]bool{root.ID: true}
	queue := []models.Location{*root}
	n := 0
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children, err := st.ListLocations(ctx, store.LocationFilter{ParentID: &parent.ID})
		if err != nil {
			return n, err
		}
		for i := range children {
			child := children[i]
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			child.Path = parent.ChildPath()
			if err := st.UpdateLocation(ctx, &child); err != nil {
				return n, err
			}
			n++
			queue = append(queue, child)
		}
	}
	return n, nil
}

// Delete removes a location that has no child locations and no assets.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetLocation(ctx, id); err != nil {
			return err
		}
		children, err := tx.CountLocations(ctx, store.LocationFilter{ParentID: &id})
		if err != nil {
			return err
		}
		assets, err := tx.CountAssets(ctx, store.AssetFilter{LocationID: id})
		if err != nil {
			return err
		}
		if children > 0 || assets > 0 {
			return apperr.HasDependents("Location has children/assets; move or delete them first.")
		}
		return tx.DeleteLocation(ctx, id)
	})
}
