package internal

import (
	"net/http"

	"assetdb-api/internal/handlers"
	"assetdb-api/internal/locations"
	"assetdb-api/internal/models"
)

// locationTree returns the client's sites with nested areas. sort=name
// orders every level by name instead of creation order.
func (s *Server) locationTree(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	tree, err := s.Locations.Tree(r.Context(), clientID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if r.URL.Query().Get("sort") == "name" {
		locations.SortByName(tree)
	}
	handlers.WriteJSON(w, http.StatusOK, tree)
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.CreateLocationRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	loc, err := s.Locations.Create(r.Context(), clientID, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, loc)
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	loc, err := s.Store.GetLocation(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, loc)
}

// renameLocation patches name, code or notes. A parent in the body is
// ignored; reparenting goes through move-subtree.
func (s *Server) renameLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.UpdateLocationRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	loc, err := s.Locations.Rename(r.Context(), id, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, loc)
}

// moveSubtree takes {"newParent": id|null}.
func (s *Server) moveSubtree(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.MoveSubtreeRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	loc, err := s.Locations.Move(r.Context(), id, req.NewParent)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, loc)
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.Locations.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
