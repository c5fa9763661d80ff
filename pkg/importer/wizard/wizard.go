// Package wizard converts third-party CSV layouts into the canonical
// locations and assets import templates. It never writes to the store;
// its output is meant to be fed to the importer unchanged.
package wizard

import (
	"context"
	"io"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
	"assetdb-api/pkg/importer"

	"github.com/sirupsen/logrus"
)

const (
	ActionMapped  importer.Action = "mapped"
	ActionSkipped importer.Action = "skipped"
)

type Summary struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Bad     int `json:"bad"`
	Total   int `json:"total"`
}

// Result holds one entry per source row plus the canonical rows produced
// from the rows that mapped cleanly.
type Result struct {
	Type    importer.EntityType  `json:"type"`
	Columns map[string]string    `json:"columns"`
	Rows    []importer.RowResult `json:"rows"`
	Summary Summary              `json:"summary"`

	records []importer.Row
}

// Records returns the canonical rows in source order.
func (r *Result) Records() []importer.Row { return r.records }

// WriteCSV writes the canonical rows under the target template header.
func (r *Result) WriteCSV(w io.Writer) error {
	header, err := importer.Template(r.Type)
	if err != nil {
		return err
	}
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = importer.FieldName(h)
	}
	return importer.WriteCSV(w, header, fields, r.records)
}

func (r *Result) ok(idx int, rec importer.Row) {
	r.Rows = append(r.Rows, importer.RowResult{RowIndex: idx, OK: true, Action: ActionMapped, Message: "ok"})
	r.records = append(r.records, rec)
	r.Summary.OK++
}

func (r *Result) bad(idx int, msg string) {
	r.Rows = append(r.Rows, importer.RowResult{RowIndex: idx, Action: importer.ActionError, Message: msg})
	r.Summary.Bad++
}

func (r *Result) skip(idx int, msg string) {
	r.Rows = append(r.Rows, importer.RowResult{RowIndex: idx, Action: ActionSkipped, Message: msg})
	r.Summary.Skipped++
}

type Wizard struct {
	store   store.Store
	aliases *AliasTable
	log     *logrus.Entry
}

// New returns a Wizard. A nil aliases uses the built-in table.
func New(st store.Store, aliases *AliasTable, logger *logrus.Logger) *Wizard {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Wizard{store: st, aliases: aliases, log: logger.WithField("component", "wizard")}
}

type LocationsOptions struct {
	// ClientCode, when set, is written on every row in place of any
	// client column in the source.
	ClientCode string
}

var locationFields = []string{"client_code", "kind", "code", "name", "parent_code"}

// Locations maps a source file onto the locations template. A row without
// an explicit kind is an area when it names a parent and a site otherwise.
func (w *Wizard) Locations(ctx context.Context, r io.Reader, opts LocationsOptions) (*Result, error) {
	header, rows, err := importer.ReadCSV(r)
	if err != nil {
		return nil, apperr.Validation("invalid CSV: " + err.Error())
	}
	cols := resolveColumns(header, w.aliases.Locations, locationFields)
	res := &Result{Type: importer.Locations, Columns: cols, Rows: make([]importer.RowResult, 0, len(rows))}
	res.Summary.Total = len(rows)
	override := models.NormalizeCode(opts.ClientCode)

	for i, row := range rows {
		idx := i + 1
		get := func(field string) string { return row.Get(cols[field]) }

		client := override
		if client == "" {
			client = models.NormalizeCode(get("client_code"))
		}
		code, name, parent := get("code"), get("name"), get("parent_code")
		switch {
		case client == "":
			res.bad(idx, "client_code missing (map a client column or pass client_code)")
			continue
		case name == "":
			res.bad(idx, "name missing")
			continue
		case code == "":
			res.bad(idx, "code missing")
			continue
		}

		kind := models.LocationSite
		if parent != "" {
			kind = models.LocationArea
		}
		if raw := get("kind"); raw != "" {
			k, ok := models.ParseLocationKind(raw)
			if !ok {
				res.bad(idx, "kind must be site or area")
				continue
			}
			kind = k
		}
		if kind == models.LocationSite && parent != "" {
			res.bad(idx, "site rows cannot have a parent_code")
			continue
		}
		if kind == models.LocationArea && parent == "" {
			res.bad(idx, "area rows need a parent_code")
			continue
		}

		res.ok(idx, importer.Row{
			"client_code": client,
			"kind":        string(kind),
			"code":        code,
			"name":        name,
			"parent_code": parent,
		})
	}
	w.logSummary(res)
	return res, nil
}

type AssetsOptions struct {
	// ClientCode is stamped on every output row. Blank leaves the client
	// to be inferred from the location code at import time.
	ClientCode string
	// UseKnownLocations drops rows whose location code is not in the
	// store.
	UseKnownLocations bool
}

var assetFields = []string{"location_code", "name", "tag", "category", "model", "serial", "status", "notes"}

// Assets maps a source file onto the assets template. Any client column
// in the source is ignored; assets are placed by location code alone.
func (w *Wizard) Assets(ctx context.Context, r io.Reader, opts AssetsOptions) (*Result, error) {
	header, rows, err := importer.ReadCSV(r)
	if err != nil {
		return nil, apperr.Validation("invalid CSV: " + err.Error())
	}
	clientCode := models.NormalizeCode(opts.ClientCode)

	var known map[string]map[int64]bool
	var clientID int64
	if opts.UseKnownLocations {
		if clientCode != "" {
			c, err := w.store.GetClientByCode(ctx, clientCode)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					return nil, apperr.RefNotFound("client_code not found")
				}
				return nil, err
			}
			clientID = c.ID
		}
		if known, err = w.knownLocations(ctx); err != nil {
			return nil, err
		}
	}

	cols := resolveColumns(header, w.aliases.Assets, assetFields)
	res := &Result{Type: importer.Assets, Columns: cols, Rows: make([]importer.RowResult, 0, len(rows))}
	res.Summary.Total = len(rows)

	for i, row := range rows {
		idx := i + 1
		get := func(field string) string { return row.Get(cols[field]) }

		loc, name := get("location_code"), get("name")
		if loc == "" {
			res.bad(idx, "location missing")
			continue
		}
		if name == "" {
			res.bad(idx, "name missing")
			continue
		}
		if opts.UseKnownLocations {
			owners := known[loc]
			switch {
			case clientID != 0 && !owners[clientID]:
				res.skip(idx, "location not in database for client: "+loc)
				continue
			case len(owners) == 0:
				res.skip(idx, "location not in database: "+loc)
				continue
			case clientID == 0 && len(owners) > 1:
				res.bad(idx, "ambiguous location_code (exists under multiple clients): "+loc)
				continue
			}
		}

		status := get("status")
		if status != "" {
			status = string(models.ParseAssetStatus(status))
		}
		res.ok(idx, importer.Row{
			"client_code":   clientCode,
			"location_code": loc,
			"name":          name,
			"tag":           get("tag"),
			"category":      get("category"),
			"model":         get("model"),
			"serial":        get("serial"),
			"status":        status,
			"notes":         get("notes"),
		})
	}
	w.logSummary(res)
	return res, nil
}

// knownLocations indexes every stored location code by owning client.
func (w *Wizard) knownLocations(ctx context.Context) (map[string]map[int64]bool, error) {
	locs, err := w.store.ListLocations(ctx, store.LocationFilter{})
	if err != nil {
		return nil, err
	}
	known := make(map[string]map[int64]bool, len(locs))
	for _, l := range locs {
		if known[l.Code] == nil {
			known[l.Code] = map[int64]bool{}
		}
		known[l.Code][l.ClientID] = true
	}
	return known, nil
}

func (w *Wizard) logSummary(res *Result) {
	w.log.WithFields(logrus.Fields{
		"type":    res.Type,
		"ok":      res.Summary.OK,
		"skipped": res.Summary.Skipped,
		"bad":     res.Summary.Bad,
		"total":   res.Summary.Total,
	}).Info("wizard mapped file")
}
