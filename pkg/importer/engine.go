// Package importer moves entities in and out of the store as CSV. Each
// supported entity type has a fixed column template and a row handler that
// validates the row, resolves its code references and, outside dry-run,
// upserts it by the type's natural key.
package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EntityType string

const (
	Clients       EntityType = "clients"
	Locations     EntityType = "locations"
	Assets        EntityType = "assets"
	Parts         EntityType = "parts"
	Suppliers     EntityType = "suppliers"
	SupplierParts EntityType = "supplier_parts"
	Jobs          EntityType = "jobs"
)

var entityTypes = []EntityType{Clients, Locations, Assets, Parts, Suppliers, SupplierParts, Jobs}

// Types lists the supported entity types in template order.
func Types() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

func ParseType(s string) (EntityType, bool) {
	for _, t := range entityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type Action string

const (
	ActionValidate Action = "validate"
	ActionInsert   Action = "insert"
	ActionUpdate   Action = "update"
	ActionError    Action = "error"
)

// msgStoreUnavailable replaces the cause of a failed row that aborts the
// batch; the cause is logged, not returned.
const msgStoreUnavailable = "store unavailable"

// RowResult reports the outcome of one input row. RowIndex is 1-based.
type RowResult struct {
	RowIndex int    `json:"rowIndex"`
	OK       bool   `json:"ok"`
	Action   Action `json:"action"`
	Message  string `json:"message"`
}

type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
	Total    int `json:"total"`
}

// Result has exactly one entry per input row, in input order.
type Result struct {
	Rows    []RowResult `json:"rows"`
	Summary Summary     `json:"summary"`
}

// batch carries state across the rows of one Import call.
type batch struct {
	dryRun bool
	// sites validated earlier in a dry run, keyed by client id then code,
	// so a later area row can name one as its parent.
	pendingSites map[int64]map[string]bool
}

func (b *batch) addPendingSite(clientID int64, code string) {
	if b.pendingSites[clientID] == nil {
		b.pendingSites[clientID] = map[string]bool{}
	}
	b.pendingSites[clientID][code] = true
}

func (b *batch) hasPendingSite(clientID int64, code string) bool {
	return b.pendingSites[clientID][code]
}

// applyFunc validates one row and, unless b.dryRun, upserts it. It reports
// whether a new record was inserted.
type applyFunc func(e *Engine, ctx context.Context, st store.Store, b *batch, row Row) (bool, error)

type exportFunc func(e *Engine, ctx context.Context) ([]Row, error)

type entity struct {
	template []string
	required []string
	apply    applyFunc
	export   exportFunc
}

// fields is the template with hints stripped.
func (en entity) fields() []string {
	out := make([]string, len(en.template))
	for i, h := range en.template {
		out[i] = FieldName(h)
	}
	return out
}

var registry = map[EntityType]entity{
	Clients: {
		template: []string{"code", "name", "notes", "addressLine1", "addressLine2", "city", "state", "postcode", "country", "contactName", "phone", "email", "website"},
		required: []string{"code", "name"},
		apply:    (*Engine).applyClient,
		export:   (*Engine).exportClients,
	},
	Locations: {
		template: []string{"client_code", "kind(site|area)", "code", "name", "parent_code(optional)"},
		required: []string{"client_code", "kind", "code", "name"},
		apply:    (*Engine).applyLocation,
		export:   (*Engine).exportLocations,
	},
	Assets: {
		template: []string{"client_code(optional)", "location_code", "name", "tag", "category", "model", "serial", "status", "notes"},
		required: []string{"location_code", "name"},
		apply:    (*Engine).applyAsset,
		export:   (*Engine).exportAssets,
	},
	Parts: {
		template: []string{"internalSku", "name", "category", "unit", "notes", "onHand", "standardCost", "reorderPoint", "reorderQty"},
		required: []string{"internalSku", "name"},
		apply:    (*Engine).applyPart,
		export:   (*Engine).exportParts,
	},
	Suppliers: {
		template: []string{"code", "name", "email", "phone", "website", "address", "notes"},
		required: []string{"code", "name"},
		apply:    (*Engine).applySupplier,
		export:   (*Engine).exportSuppliers,
	},
	SupplierParts: {
		template: []string{"supplier_code", "part_internalSku", "supplierSku", "price", "currency", "leadTimeDays", "moq", "preferred"},
		required: []string{"supplier_code", "part_internalSku"},
		apply:    (*Engine).applySupplierPart,
		export:   (*Engine).exportSupplierParts,
	},
	Jobs: {
		template: []string{"jobNumber", "poNumber", "client_code", "location_code", "asset_tag", "title", "description", "startDate", "quoteDueDate", "status"},
		required: []string{"jobNumber", "client_code", "title"},
		apply:    (*Engine).applyJob,
		export:   (*Engine).exportJobs,
	},
}

func lookup(t EntityType) (entity, error) {
	en, ok := registry[t]
	if !ok {
		return entity{}, apperr.Validation(fmt.Sprintf("unsupported type: %s", t))
	}
	return en, nil
}

// Template returns the header row for t exactly as it is emitted.
func Template(t EntityType) ([]string, error) {
	en, err := lookup(t)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(en.template))
	copy(out, en.template)
	return out, nil
}

// WriteTemplate writes the header-only CSV for t.
func WriteTemplate(w io.Writer, t EntityType) error {
	en, err := lookup(t)
	if err != nil {
		return err
	}
	return WriteCSV(w, en.template, en.fields(), nil)
}

type Engine struct {
	store store.Store
	log   *logrus.Entry
}

func NewEngine(st store.Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{store: st, log: logger.WithField("component", "importer")}
}

// Import runs rows through t's handler strictly in order. Row-scoped
// failures are recorded and the batch carries on. An infrastructure
// failure stops the batch; the rows handled so far are returned together
// with the error. In dry-run mode nothing is written.
func (e *Engine) Import(ctx context.Context, t EntityType, rows []Row, dryRun bool) (*Result, error) {
	en, err := lookup(t)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{"run_id": runID, "type": t, "dry_run": dryRun})
	start := time.Now()

	b := &batch{dryRun: dryRun, pendingSites: map[int64]map[string]bool{}}
	res := &Result{Rows: make([]RowResult, 0, len(rows))}
	res.Summary.Total = len(rows)

	for i, row := range rows {
		rr := RowResult{RowIndex: i + 1}
		inserted, err := e.applyRow(ctx, en, b, row)
		switch {
		case err == nil:
			rr.OK = true
			rr.Message = "ok"
			switch {
			case dryRun:
				rr.Action = ActionValidate
			case inserted:
				rr.Action = ActionInsert
				res.Summary.Inserted++
			default:
				rr.Action = ActionUpdate
				res.Summary.Updated++
			}
		case apperr.IsRowScoped(err):
			rr.Action = ActionError
			rr.Message = err.Error()
			res.Summary.Errors++
			log.WithFields(logrus.Fields{"row": rr.RowIndex, "error": rr.Message}).Debug("row rejected")
		default:
			rr.Action = ActionError
			rr.Message = msgStoreUnavailable
			res.Summary.Errors++
			res.Rows = append(res.Rows, rr)
			log.WithError(err).WithField("row", rr.RowIndex).Error("import aborted")
			return res, fmt.Errorf("import %s row %d: %w", t, rr.RowIndex, err)
		}
		res.Rows = append(res.Rows, rr)
	}

	log.WithFields(logrus.Fields{
		"inserted": res.Summary.Inserted,
		"updated":  res.Summary.Updated,
		"errors":   res.Summary.Errors,
		"total":    res.Summary.Total,
		"duration": time.Since(start).String(),
	}).Info("import finished")
	return res, nil
}

// ImportCSV parses r and imports its rows.
func (e *Engine) ImportCSV(ctx context.Context, t EntityType, r io.Reader, dryRun bool) (*Result, error) {
	if _, err := lookup(t); err != nil {
		return nil, err
	}
	_, rows, err := ReadCSV(r)
	if err != nil {
		return nil, apperr.Validation("invalid CSV: " + err.Error())
	}
	return e.Import(ctx, t, rows, dryRun)
}

// ImportXLSX imports the first sheet of a workbook.
func (e *Engine) ImportXLSX(ctx context.Context, t EntityType, r io.Reader, dryRun bool) (*Result, error) {
	if _, err := lookup(t); err != nil {
		return nil, err
	}
	_, rows, err := ReadXLSX(r)
	if err != nil {
		return nil, apperr.Validation("invalid workbook: " + err.Error())
	}
	return e.Import(ctx, t, rows, dryRun)
}

// applyRow checks required fields before anything reaches the store. A
// committing row validates and upserts inside one transaction.
func (e *Engine) applyRow(ctx context.Context, en entity, b *batch, row Row) (bool, error) {
	for _, f := range en.required {
		if row.Get(f) == "" {
			return false, apperr.Required(f)
		}
	}
	if b.dryRun {
		return en.apply(e, ctx, e.store, b, row)
	}
	var inserted bool
	err := e.store.InTx(ctx, func(tx store.Store) error {
		var err error
		inserted, err = en.apply(e, ctx, tx, b, row)
		return err
	})
	return inserted, err
}

// Export writes every record of type t as CSV under the template header.
// References are written as codes, never ids.
func (e *Engine) Export(ctx context.Context, t EntityType, w io.Writer) error {
	en, err := lookup(t)
	if err != nil {
		return err
	}
	rows, err := en.export(e, ctx)
	if err != nil {
		return err
	}
	return WriteCSV(w, en.template, en.fields(), rows)
}
