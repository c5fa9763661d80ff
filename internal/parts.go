package internal

import (
	"net/http"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
)

// listParts handles part listing with search and pagination
func (s *Server) listParts(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	parts, err := s.Store.ListParts(r.Context(), store.PartFilter{})
	if err != nil {
		s.fail(w, err)
		return
	}
	if params.q != "" {
		q := strings.ToLower(params.q)
		kept := parts[:0]
		for _, p := range parts {
			if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.InternalSKU), q) {
				kept = append(kept, p)
			}
		}
		parts = kept
	}
	sendListResponse(w, page(parts, params), len(parts), params)
}

func (s *Server) getPart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.Store.GetPart(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, p)
}

// createPart adds a catalogue part. Supplier options are added through
// link-part, never here.
func (s *Server) createPart(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePartRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	p := req.Part()
	if p.InternalSKU == "" {
		s.fail(w, apperr.Required("internal_sku"))
		return
	}
	if err := s.Store.CreatePart(r.Context(), &p); err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithField("part_id", p.ID).Info("part created")
	handlers.WriteJSON(w, http.StatusCreated, p)
}
