package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
	"assetdb-api/pkg/importer"
	"assetdb-api/pkg/importer/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

type recordingObserver struct {
	calls []importer.Summary
}

func (o *recordingObserver) ObserveImport(_ importer.EntityType, _ bool, res *importer.Result) {
	o.calls = append(o.calls, res.Summary)
}

func newTestRouter(t *testing.T, st store.Store) (*chi.Mux, *ImportsHandler, *recordingObserver) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	h := NewImportsHandler(importer.NewEngine(st, logger), wizard.New(st, nil, logger), 1<<20, logger)
	obs := &recordingObserver{}
	h.Observer = obs

	r := chi.NewRouter()
	r.Get("/imports/types", h.Types)
	r.Get("/imports/{type}/template", h.Template)
	r.Get("/imports/{type}/export", h.Export)
	r.Post("/imports/wizard/locations", h.WizardLocations)
	r.Post("/imports/wizard/assets", h.WizardAssets)
	r.Post("/imports/{type}", h.Import)
	return r, h, obs
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeImport(t *testing.T, w *httptest.ResponseRecorder) ImportResponse {
	t.Helper()
	var out ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestImportTypes(t *testing.T) {
	r, _, _ := newTestRouter(t, store.NewMemory())
	w := do(r, http.MethodGet, "/imports/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"supplier_parts"`)
}

func TestImportTemplate(t *testing.T) {
	r, _, _ := newTestRouter(t, store.NewMemory())

	w := do(r, http.MethodGet, "/imports/locations/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "client_code,kind(site|area),code,name,parent_code(optional)\n", w.Body.String())

	w = do(r, http.MethodGet, "/imports/widgets/template", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported type: widgets")
}

func TestImportDryRunThenCommit(t *testing.T) {
	mem := store.NewMemory()
	r, _, obs := newTestRouter(t, mem)
	csv := []byte("code,name\nalcoa,Alcoa\n,Nameless\n")

	before := mem.Snapshot()
	w := do(r, http.MethodPost, "/imports/clients?dry_run=1", csv)
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeImport(t, w)
	assert.True(t, out.OK)
	assert.True(t, out.DryRun)
	assert.Equal(t, importer.Clients, out.Type)
	assert.Equal(t, importer.Summary{Errors: 1, Total: 2}, out.Summary)
	assert.Equal(t, importer.ActionValidate, out.Rows[0].Action)
	assert.Equal(t, "code required", out.Rows[1].Message)
	assert.Equal(t, "code", out.Template[0])
	assert.Equal(t, before, mem.Snapshot())

	w = do(r, http.MethodPost, "/imports/clients", csv)
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeImport(t, w)
	assert.False(t, out.DryRun)
	assert.Equal(t, importer.Summary{Inserted: 1, Errors: 1, Total: 2}, out.Summary)

	c, err := mem.GetClientByCode(context.Background(), "ALCOA")
	require.NoError(t, err)
	assert.Equal(t, "Alcoa", c.Name)
	assert.Len(t, obs.calls, 2)
}

func TestImportXLSXBody(t *testing.T) {
	mem := store.NewMemory()
	r, _, _ := newTestRouter(t, mem)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Suppliers")
	require.NoError(t, err)
	for _, rec := range [][]string{{"code", "name"}, {"acme", "Acme Industrial"}} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	w := do(r, http.MethodPost, "/imports/suppliers", buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, importer.Summary{Inserted: 1, Total: 1}, decodeImport(t, w).Summary)

	s, err := mem.GetSupplierByCode(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial", s.Name)
}

func TestImportRejectsBadBodies(t *testing.T) {
	r, h, _ := newTestRouter(t, store.NewMemory())

	w := do(r, http.MethodPost, "/imports/clients", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is empty")

	h.MaxBytes = 8
	w = do(r, http.MethodPost, "/imports/clients", []byte("code,name\nA,B\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file exceeds 8 bytes")
}

type downStore struct {
	store.Store
}

func (d downStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(d)
}

func (downStore) UpsertClient(context.Context, *models.Client) error {
	return apperr.Infrastructure("upsert client", errors.New("connection refused"))
}

func TestImportInfrastructureFailure(t *testing.T) {
	r, _, _ := newTestRouter(t, downStore{store.NewMemory()})

	w := do(r, http.MethodPost, "/imports/clients", []byte("code,name\nA,Alpha\nB,Beta\n"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	out := decodeImport(t, w)
	assert.False(t, out.OK)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, importer.ActionError, out.Rows[0].Action)
	assert.Equal(t, "store unavailable", out.Rows[0].Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestExport(t *testing.T) {
	mem := store.NewMemory()
	r, _, _ := newTestRouter(t, mem)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/imports/suppliers", []byte("code,name\nSEAL,Seal Co\n")).Code)

	w := do(r, http.MethodGet, "/imports/suppliers/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="suppliers.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "code,name,email,phone,website,address,notes\nSEAL,Seal Co,"))
}

func TestWizardEndpoints(t *testing.T) {
	mem := store.NewMemory()
	r, _, _ := newTestRouter(t, mem)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/imports/clients", []byte("code,name\nALCOA,Alcoa\n")).Code)

	src := []byte("Location Name,Location Code,Parent\nWagerup,WG,\nPump Room,PR1,WG\n")
	w := do(r, http.MethodPost, "/imports/wizard/locations?preview=1&client_code=alcoa", src)
	require.Equal(t, http.StatusOK, w.Code)
	var preview struct {
		OK      bool           `json:"ok"`
		Summary wizard.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, wizard.Summary{OK: 2, Total: 2}, preview.Summary)

	w = do(r, http.MethodPost, "/imports/wizard/locations?client_code=alcoa", src)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="locations_mapped.csv"`, w.Header().Get("Content-Disposition"))
	mapped := w.Body.Bytes()

	w = do(r, http.MethodPost, "/imports/locations", mapped)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, importer.Summary{Inserted: 2, Total: 2}, decodeImport(t, w).Summary)

	w = do(r, http.MethodPost, "/imports/wizard/assets?preview=1", []byte("Asset Name,Location\nPump,PR1\nFan,NOWHERE\n"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, wizard.Summary{OK: 1, Skipped: 1, Total: 2}, preview.Summary)

	w = do(r, http.MethodPost, "/imports/wizard/assets?preview=1&use_db_locations=false", []byte("Asset Name,Location\nFan,NOWHERE\n"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, wizard.Summary{OK: 1, Total: 1}, preview.Summary)

	w = do(r, http.MethodPost, "/imports/wizard/assets?client_code=nope", []byte("Asset Name,Location\nPump,PR1\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "REFERENCE_NOT_FOUND")
}
