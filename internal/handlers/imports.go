package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/pkg/importer"
	"assetdb-api/pkg/importer/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// zip local file header; every .xlsx starts with it.
var zipMagic = []byte("PK\x03\x04")

// ImportObserver is told about every import batch that ran.
type ImportObserver interface {
	ObserveImport(t importer.EntityType, dryRun bool, res *importer.Result)
}

// ImportsHandler serves the CSV import, export and wizard endpoints.
type ImportsHandler struct {
	Engine   *importer.Engine
	Wizard   *wizard.Wizard
	MaxBytes int64
	Observer ImportObserver
	log      *logrus.Entry
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(engine *importer.Engine, wiz *wizard.Wizard, maxBytes int64, logger *logrus.Logger) *ImportsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20 // 20 MB
	}
	return &ImportsHandler{
		Engine:   engine,
		Wizard:   wiz,
		MaxBytes: maxBytes,
		log:      logger.WithField("component", "imports"),
	}
}

// ImportResponse is the body of POST /imports/{type}.
type ImportResponse struct {
	OK       bool                 `json:"ok"`
	Type     importer.EntityType  `json:"type"`
	DryRun   bool                 `json:"dryRun"`
	Rows     []importer.RowResult `json:"rows"`
	Summary  importer.Summary     `json:"summary"`
	Template []string             `json:"template"`
	Error    string               `json:"error,omitempty"`
}

// Types lists the importable entity types.
func (h *ImportsHandler) Types(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"types": importer.Types()})
}

// Template returns the header-only CSV for a type.
func (h *ImportsHandler) Template(w http.ResponseWriter, r *http.Request) {
	t, err := entityType(r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf, t); err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeCSV(w, fmt.Sprintf("%s_template.csv", t), buf.Bytes())
}

// Import runs the request body through the engine. dry_run=1 validates
// without writing. The body is CSV unless it is an .xlsx workbook.
func (h *ImportsHandler) Import(w http.ResponseWriter, r *http.Request) {
	t, err := entityType(r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	body, err := h.readBody(w, r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	dryRun := r.URL.Query().Get("dry_run") == "1"

	var res *importer.Result
	if isXLSX(r, body) {
		res, err = h.Engine.ImportXLSX(r.Context(), t, bytes.NewReader(body), dryRun)
	} else {
		res, err = h.Engine.ImportCSV(r.Context(), t, bytes.NewReader(body), dryRun)
	}
	if res == nil {
		WriteError(w, h.log, err)
		return
	}
	if h.Observer != nil {
		h.Observer.ObserveImport(t, dryRun, res)
	}

	template, _ := importer.Template(t)
	out := ImportResponse{
		OK:       err == nil,
		Type:     t,
		DryRun:   dryRun,
		Rows:     res.Rows,
		Summary:  res.Summary,
		Template: template,
	}
	if err != nil {
		// the rows handled before the store failed are still reported
		h.log.WithError(err).WithField("type", t).Error("import aborted")
		out.Error = "import aborted: store unavailable"
		WriteJSON(w, http.StatusInternalServerError, out)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// Export streams every record of a type as a CSV attachment.
func (h *ImportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	t, err := entityType(r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	var buf bytes.Buffer
	if err := h.Engine.Export(r.Context(), t, &buf); err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeCSV(w, fmt.Sprintf("%s.csv", t), buf.Bytes())
}

// WizardLocations maps a third-party locations file onto the locations
// template. preview=1 returns the per-row report instead of the file.
func (h *ImportsHandler) WizardLocations(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	res, err := h.Wizard.Locations(r.Context(), bytes.NewReader(body), wizard.LocationsOptions{
		ClientCode: r.URL.Query().Get("client_code"),
	})
	h.writeWizard(w, r, res, err, "locations_mapped.csv")
}

// WizardAssets maps a third-party assets file onto the assets template.
// use_db_locations defaults to on.
func (h *ImportsHandler) WizardAssets(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	useKnown := true
	if v := r.URL.Query().Get("use_db_locations"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			useKnown = b
		}
	}
	res, err := h.Wizard.Assets(r.Context(), bytes.NewReader(body), wizard.AssetsOptions{
		ClientCode:        r.URL.Query().Get("client_code"),
		UseKnownLocations: useKnown,
	})
	h.writeWizard(w, r, res, err, "assets_mapped.csv")
}

func (h *ImportsHandler) writeWizard(w http.ResponseWriter, r *http.Request, res *wizard.Result, err error, filename string) {
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	if r.URL.Query().Get("preview") == "1" {
		WriteJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"type":    res.Type,
			"columns": res.Columns,
			"rows":    res.Rows,
			"summary": res.Summary,
		})
		return
	}
	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeCSV(w, filename, buf.Bytes())
}

// readBody reads at most MaxBytes of the request body.
func (h *ImportsHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation(fmt.Sprintf("file exceeds %d bytes", h.MaxBytes))
		}
		return nil, apperr.Validation("read body: " + err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperr.Validation("file is empty")
	}
	return body, nil
}

func entityType(r *http.Request) (importer.EntityType, error) {
	raw := chi.URLParam(r, "type")
	t, ok := importer.ParseType(raw)
	if !ok {
		return "", apperr.Validation("unsupported type: " + raw)
	}
	return t, nil
}

// isXLSX checks the declared content type, then sniffs the zip header.
func isXLSX(r *http.Request, body []byte) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), xlsxContentType) {
		return true
	}
	return bytes.HasPrefix(body, zipMagic)
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Warn("write csv")
	}
}
