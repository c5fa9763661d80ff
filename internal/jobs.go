package internal

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type jobListResponse struct {
	Items    []models.Job       `json:"items"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Statuses []models.JobStatus `json:"statuses"`
}

// listJobs filters by status, client_id and asset_id. The workflow
// statuses ride along so a board can render empty columns.
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	f := store.JobFilter{Limit: params.limit, Offset: params.offset}
	var err error
	if f.ClientID, err = queryID(r, "client_id"); err != nil {
		s.fail(w, err)
		return
	}
	if f.AssetID, err = queryID(r, "asset_id"); err != nil {
		s.fail(w, err)
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if !models.IsJobStatus(raw) {
			s.fail(w, apperr.Validation("invalid status: "+raw))
			return
		}
		f.Status = models.JobStatus(raw)
	}

	jobs, total, err := s.Store.ListJobs(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	handlers.WriteJSON(w, http.StatusOK, jobListResponse{
		Items:    jobs,
		Total:    total,
		Limit:    params.limit,
		Offset:   params.offset,
		Statuses: models.JobStatuses(),
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	j, err := s.Store.GetJob(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, j)
}

// createJob requires the optional location and asset to belong to the
// job's client.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	status := models.JobInvestigateQuote
	if raw := strings.TrimSpace(req.Status); raw != "" {
		if !models.IsJobStatus(strings.ToLower(raw)) {
			s.fail(w, apperr.Validation("invalid status: "+raw))
			return
		}
		status = models.ParseJobStatus(raw)
	}
	j := models.Job{
		JobNumber:    strings.TrimSpace(req.JobNumber),
		PONumber:     strings.TrimSpace(req.PONumber),
		ClientID:     req.ClientID,
		LocationID:   req.LocationID,
		AssetID:      req.AssetID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		StartDate:    req.StartDate,
		QuoteDueDate: req.QuoteDueDate,
		Status:       status,
	}

	err := s.Store.InTx(r.Context(), func(tx store.Store) error {
		if err := checkJobRefs(r.Context(), tx, &j); err != nil {
			return err
		}
		return tx.CreateJob(r.Context(), &j)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"job_id": j.ID, "job_number": j.JobNumber}).Info("job created")
	handlers.WriteJSON(w, http.StatusCreated, j)
}

func checkJobRefs(ctx context.Context, st store.Store, j *models.Job) error {
	if _, err := st.GetClient(ctx, j.ClientID); err != nil {
		return refError(err, "Invalid client")
	}
	if j.LocationID != nil {
		if err := checkAssetLocation(ctx, st, j.ClientID, *j.LocationID); err != nil {
			return err
		}
	}
	if j.AssetID != nil {
		a, err := st.GetAsset(ctx, *j.AssetID)
		if err != nil {
			return refError(err, "Invalid asset")
		}
		if a.ClientID != j.ClientID {
			return apperr.Validation("Asset belongs to a different client")
		}
	}
	return nil
}

func (s *Server) addJobResource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var req models.AddJobResourceRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if req.Hours.IsNegative() {
		s.fail(w, apperr.Validation("hours must not be negative"))
		return
	}
	j, err := s.updateJob(r.Context(), id, func(j *models.Job) error {
		j.Resources = append(j.Resources, models.JobResource{
			Person: strings.TrimSpace(req.Person),
			Role:   req.Role,
			Hours:  req.Hours,
			Date:   req.Date,
			Notes:  req.Notes,
		})
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, j)
}

// deleteJobResource removes the resource at the zero-based index.
func (s *Server) deleteJobResource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		s.fail(w, apperr.Validation("invalid index: "+raw))
		return
	}
	j, err := s.updateJob(r.Context(), id, func(j *models.Job) error {
		if idx >= len(j.Resources) {
			return apperr.NotFound("Resource not found on job")
		}
		j.Resources = append(j.Resources[:idx:idx], j.Resources[idx+1:]...)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, j)
}

func (s *Server) updateJob(ctx context.Context, id int64, mutate func(*models.Job) error) (*models.Job, error) {
	var out *models.Job
	err := s.Store.InTx(ctx, func(tx store.Store) error {
		j, err := tx.GetJob(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(j); err != nil {
			return err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		out = j
		return nil
	})
	return out, err
}
