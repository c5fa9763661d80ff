package internal

import (
	"context"
	"net/http"
	"strings"
	"time"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// listAssets handles asset listing with filters and pagination
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	var f store.AssetFilter
	var err error
	if f.ClientID, err = queryID(r, "client_id"); err != nil {
		s.fail(w, err)
		return
	}
	if f.LocationID, err = queryID(r, "location_id"); err != nil {
		s.fail(w, err)
		return
	}
	f.Tag = strings.TrimSpace(r.URL.Query().Get("tag"))

	assets, err := s.Store.ListAssets(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if params.q != "" {
		q := strings.ToLower(params.q)
		kept := assets[:0]
		for _, a := range assets {
			if strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Tag), q) {
				kept = append(kept, a)
			}
		}
		assets = kept
	}
	sendListResponse(w, page(assets, params), len(assets), params)
}

// getAsset handles getting a single asset by ID
func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.Store.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

// createAsset checks the client, that the location belongs to it and that
// every catalogued BOM part exists.
func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	status := models.AssetActive
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = models.ParseAssetStatus(raw)
		if string(status) != strings.ToLower(raw) {
			s.fail(w, apperr.Validation("status must be one of active, spare, retired, missing"))
			return
		}
	}
	a := models.Asset{
		ClientID:   req.ClientID,
		LocationID: req.LocationID,
		Name:       strings.TrimSpace(req.Name),
		Tag:        strings.TrimSpace(req.Tag),
		Category:   req.Category,
		Model:      req.Model,
		Serial:     strings.TrimSpace(req.Serial),
		Status:     status,
		Notes:      req.Notes,
		BOM:        req.BOM,
	}

	err := s.Store.InTx(r.Context(), func(tx store.Store) error {
		if _, err := tx.GetClient(r.Context(), a.ClientID); err != nil {
			return refError(err, "Invalid client")
		}
		if err := checkAssetLocation(r.Context(), tx, a.ClientID, a.LocationID); err != nil {
			return err
		}
		if err := checkBOM(r.Context(), tx, a.BOM); err != nil {
			return err
		}
		return tx.CreateAsset(r.Context(), &a)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"asset_id": a.ID, "client_id": a.ClientID}).Info("asset created")
	handlers.WriteJSON(w, http.StatusCreated, a)
}

// moveAsset places the asset at another location of the same client.
func (s *Server) moveAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.MoveAssetRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.updateAsset(r.Context(), id, func(tx store.Store, a *models.Asset) error {
		if err := checkAssetLocation(r.Context(), tx, a.ClientID, req.LocationID); err != nil {
			return err
		}
		a.LocationID = req.LocationID
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.Store.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := a.Attachments
	if out == nil {
		out = models.Attachments{}
	}
	handlers.WriteJSON(w, http.StatusOK, out)
}

// addAttachment records metadata for a file stored elsewhere.
func (s *Server) addAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.AddAttachmentRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	att := models.Attachment{
		Filename:     strings.TrimSpace(req.Filename),
		OriginalName: req.OriginalName,
		Size:         req.Size,
		MimeType:     req.MimeType,
		UploadedAt:   time.Now().UTC(),
	}
	if att.OriginalName == "" {
		att.OriginalName = att.Filename
	}
	_, err = s.updateAsset(r.Context(), id, func(_ store.Store, a *models.Asset) error {
		for _, existing := range a.Attachments {
			if existing.Filename == att.Filename {
				return apperr.Conflict("attachment already exists on asset", nil)
			}
		}
		a.Attachments = append(a.Attachments, att)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "attachment": att})
}

// deleteAttachment drops the attachment and clears the main photo if it
// pointed at it.
func (s *Server) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	filename := chi.URLParam(r, "filename")
	_, err = s.updateAsset(r.Context(), id, func(_ store.Store, a *models.Asset) error {
		if !a.RemoveAttachment(filename) {
			return apperr.NotFound(models.ErrAttachmentNotFound.Error())
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) setMainPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.MainPhotoRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.updateAsset(r.Context(), id, func(_ store.Store, a *models.Asset) error {
		if err := a.SetMainPhoto(req.Filename); err != nil {
			return apperr.Validation(err.Error())
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "main_photo": a.MainPhoto})
}

// applyTemplate appends a BOM template's lines to the asset's BOM. The
// template must be global or belong to the asset's client.
func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	templateID, err := pathID(r, "templateId")
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.updateAsset(r.Context(), id, func(tx store.Store, a *models.Asset) error {
		t, err := tx.GetBomTemplate(r.Context(), templateID)
		if err != nil {
			return err
		}
		if !t.AvailableTo(a.ClientID) {
			return apperr.Validation("Template belongs to a different client")
		}
		a.BOM = append(a.BOM, t.Lines...)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

// updateAsset loads, mutates and saves an asset in one transaction.
func (s *Server) updateAsset(ctx context.Context, id int64, mutate func(store.Store, *models.Asset) error) (*models.Asset, error) {
	var out *models.Asset
	err := s.Store.InTx(ctx, func(tx store.Store) error {
		a, err := tx.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(tx, a); err != nil {
			return err
		}
		if err := tx.UpdateAsset(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func checkAssetLocation(ctx context.Context, st store.Store, clientID, locationID int64) error {
	loc, err := st.GetLocation(ctx, locationID)
	if err != nil {
		return refError(err, "Invalid location")
	}
	if loc.ClientID != clientID {
		return apperr.Validation("Location belongs to a different client")
	}
	return nil
}

// checkBOM validates every line and that each referenced part exists.
func checkBOM(ctx context.Context, st store.Store, bom models.BOM) error {
	if err := bom.Validate(); err != nil {
		return apperr.Validation(err.Error())
	}
	ids := bom.PartIDs()
	if len(ids) == 0 {
		return nil
	}
	parts, err := st.ListParts(ctx, store.PartFilter{IDs: ids})
	if err != nil {
		return err
	}
	if len(parts) != len(ids) {
		return apperr.RefNotFound("Invalid Part reference in BOM")
	}
	return nil
}

// refError turns a missing referenced entity into a 400 rather than a 404.
func refError(err error, message string) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.RefNotFound(message)
	}
	return err
}
