package internal

import (
	"net/http"
	"strings"

	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
)

// listBomTemplates returns every template, or with client_id only the
// global ones and that client's own.
func (s *Server) listBomTemplates(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "client_id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var filter *int64
	if clientID != 0 {
		filter = &clientID
	}
	templates, err := s.Store.ListBomTemplates(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	if templates == nil {
		templates = []models.BomTemplate{}
	}
	handlers.WriteJSON(w, http.StatusOK, templates)
}

func (s *Server) createBomTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBomTemplateRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	t := models.BomTemplate{
		Name:     strings.TrimSpace(req.Name),
		ClientID: req.ClientID,
		Category: req.Category,
		Lines:    req.Lines,
	}
	err := s.Store.InTx(r.Context(), func(tx store.Store) error {
		if t.ClientID != nil {
			if _, err := tx.GetClient(r.Context(), *t.ClientID); err != nil {
				return refError(err, "Invalid client")
			}
		}
		if err := checkBOM(r.Context(), tx, t.Lines); err != nil {
			return err
		}
		return tx.CreateBomTemplate(r.Context(), &t)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, t)
}
