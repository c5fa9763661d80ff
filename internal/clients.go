package internal

import (
	"context"
	"net/http"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/sirupsen/logrus"
)

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.Store.ListClients(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	params := parseListParams(r)
	sendListResponse(w, page(clients, params), len(clients), params)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	c, err := s.Store.GetClient(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, c)
}

// createClient stores the code uppercased; a taken code is a conflict.
func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClientRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	c := req.Client()
	if c.Code == "" {
		s.fail(w, apperr.Required("code"))
		return
	}
	if err := s.Store.CreateClient(r.Context(), &c); err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"client_id": c.ID, "code": c.Code}).Info("client created")
	handlers.WriteJSON(w, http.StatusCreated, c)
}

// deleteClient refuses while the client still owns locations or assets.
func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	err = s.Store.InTx(r.Context(), func(tx store.Store) error {
		return deleteClient(r.Context(), tx, id)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithField("client_id", id).Info("client deleted")
	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func deleteClient(ctx context.Context, st store.Store, id int64) error {
	if _, err := st.GetClient(ctx, id); err != nil {
		return err
	}
	locs, err := st.CountLocations(ctx, store.LocationFilter{ClientID: id})
	if err != nil {
		return err
	}
	assets, err := st.CountAssets(ctx, store.AssetFilter{ClientID: id})
	if err != nil {
		return err
	}
	if locs > 0 || assets > 0 {
		return apperr.HasDependents("Client has locations/assets; delete or move them first.")
	}
	return st.DeleteClient(ctx, id)
}
