package internal

import (
	"net/http"
	"strconv"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/sirupsen/logrus"
)

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.Store.ListSuppliers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	params := parseListParams(r)
	sendListResponse(w, page(suppliers, params), len(suppliers), params)
}

func (s *Server) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	sup, err := s.Store.GetSupplier(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, sup)
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSupplierRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	sup := models.Supplier{
		Code:    models.NormalizeCode(req.Code),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   req.Phone,
		Website: req.Website,
		Address: req.Address,
		Notes:   req.Notes,
	}
	if sup.Code == "" {
		s.fail(w, apperr.Required("code"))
		return
	}
	if err := s.Store.CreateSupplier(r.Context(), &sup); err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"supplier_id": sup.ID, "code": sup.Code}).Info("supplier created")
	handlers.WriteJSON(w, http.StatusCreated, sup)
}

// supplierParts lists the parts a supplier offers. linked=false lists the
// parts it does not offer yet, for picking what to link next.
func (s *Server) supplierParts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	linked := true
	if raw := r.URL.Query().Get("linked"); raw != "" {
		if linked, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, apperr.Validation("invalid linked: "+raw))
			return
		}
	}
	if _, err := s.Store.GetSupplier(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	f := store.PartFilter{LinkedTo: id}
	if !linked {
		f = store.PartFilter{NotLinkedTo: id}
	}
	parts, err := s.Store.ListParts(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, parts)
}

// linkPart adds or replaces the supplier's option on a part.
func (s *Server) linkPart(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.LinkPartRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if req.Price.IsNegative() {
		s.fail(w, apperr.Validation("price must not be negative"))
		return
	}

	var part *models.Part
	err = s.Store.InTx(r.Context(), func(tx store.Store) error {
		if _, err := tx.GetSupplier(r.Context(), supplierID); err != nil {
			return err
		}
		p, err := tx.GetPart(r.Context(), req.PartID)
		if err != nil {
			return refError(err, "Invalid part")
		}
		p.LinkSupplier(models.SupplierOption{
			SupplierID:   supplierID,
			SupplierSKU:  strings.TrimSpace(req.SupplierSKU),
			Price:        req.Price,
			Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
			LeadTimeDays: req.LeadTimeDays,
			MOQ:          req.MOQ,
			Preferred:    req.Preferred,
		})
		if err := tx.UpdatePart(r.Context(), p); err != nil {
			return err
		}
		part = p
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, part)
}

func (s *Server) unlinkPart(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	partID, err := pathID(r, "partId")
	if err != nil {
		s.fail(w, err)
		return
	}
	err = s.Store.InTx(r.Context(), func(tx store.Store) error {
		p, err := tx.GetPart(r.Context(), partID)
		if err != nil {
			return err
		}
		if !p.UnlinkSupplier(supplierID) {
			return apperr.NotFound("Part is not linked to this supplier")
		}
		return tx.UpdatePart(r.Context(), p)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
