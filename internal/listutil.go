package internal

import (
	"net/http"
	"strconv"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/handlers"

	"github.com/go-chi/chi/v5"
)

// listParams holds common query parameters for list endpoints
type listParams struct {
	limit  int
	offset int
	q      string
}

// parseListParams parses limit, offset and q from the request.
// Defaults: limit=50 (max 200), offset=0
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	limit := 50
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > 200 {
				v = 200
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return listParams{
		limit:  limit,
		offset: offset,
		q:      strings.TrimSpace(values.Get("q")),
	}
}

type listResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func sendListResponse(w http.ResponseWriter, items interface{}, total int, params listParams) {
	handlers.WriteJSON(w, http.StatusOK, listResponse{
		Items:  items,
		Total:  total,
		Limit:  params.limit,
		Offset: params.offset,
	})
}

// page slices an already filtered list. Stores that cannot page
// themselves go through here.
func page[T any](all []T, params listParams) []T {
	if params.offset >= len(all) {
		return []T{}
	}
	end := params.offset + params.limit
	if end > len(all) {
		end = len(all)
	}
	return all[params.offset:end]
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid " + name + ": " + raw)
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter; 0 when
// absent.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid " + name + ": " + raw)
	}
	return id, nil
}
