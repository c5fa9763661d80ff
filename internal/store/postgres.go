package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Postgres is the PostgreSQL Store, driven through database/sql with the
// pgx driver.
type Postgres struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

// OpenPostgres opens a pgx-backed *sql.DB and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func (p *Postgres) InTx(ctx context.Context, fn func(Store) error) error {
	if p.tx {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infrastructure("begin transaction", err)
	}
	if err := fn(&Postgres{db: p.db, q: tx, tx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

var conflictMessages = map[string]string{
	"clients_code_key":                 "client code already exists",
	"locations_client_parent_code_key": "location code already exists under this parent",
	"assets_natural_key":               "asset already exists at this location",
	"assets_client_serial_key":         "asset serial already exists for client",
	"suppliers_code_key":               "supplier code already exists",
	"parts_internal_sku_key":           "part internalSku already exists",
	"jobs_job_number_key":              "job number already exists",
	"users_email_key":                  "email already exists",
}

// mapError turns driver errors into typed errors. Constraint violations
// become request errors; everything else is an infrastructure failure.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			msg, ok := conflictMessages[pgErr.ConstraintName]
			if !ok {
				msg = "unique constraint violated"
			}
			return apperr.Conflict(msg, err)
		case "23503": // foreign_key_violation
			if strings.HasPrefix(op, "delete") {
				return apperr.HasDependents("record is still referenced")
			}
			return apperr.RefNotFound("referenced record not found")
		case "23514": // check_violation
			return apperr.Validation(fmt.Sprintf("invalid value (%s)", pgErr.ConstraintName))
		}
	}
	return apperr.Infrastructure(op, err)
}

func notFoundOr(op, msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(msg)
	}
	return mapError(op, err)
}

func requireAffected(res sql.Result, op, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return apperr.NotFound(msg)
	}
	return nil
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(format string, v any) {
	w.args = append(w.args, v)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func nonNilPath(p []int64) pq.Int64Array {
	if p == nil {
		return pq.Int64Array{}
	}
	return pq.Int64Array(p)
}

// Clients

const clientColumns = `id, code, name, notes, address_line1, address_line2, city, state, postcode,
	country, contact_name, phone, email, website, created_at, updated_at`

func scanClient(row scanner) (models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Notes, &c.AddressLine1, &c.AddressLine2, &c.City, &c.State,
		&c.Postcode, &c.Country, &c.ContactName, &c.Phone, &c.Email, &c.Website, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (p *Postgres) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY code`)
	if err != nil {
		return nil, mapError("list clients", err)
	}
	defer rows.Close()
	out := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, mapError("scan client", err)
		}
		out = append(out, c)
	}
	return out, mapError("list clients", rows.Err())
}

func (p *Postgres) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	c, err := scanClient(p.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get client", "Client not found", err)
	}
	return &c, nil
}

func (p *Postgres) GetClientByCode(ctx context.Context, code string) (*models.Client, error) {
	c, err := scanClient(p.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE code = $1`, code))
	if err != nil {
		return nil, notFoundOr("get client", "Client not found", err)
	}
	return &c, nil
}

func clientArgs(c *models.Client) []any {
	return []any{c.Code, c.Name, c.Notes, c.AddressLine1, c.AddressLine2, c.City, c.State, c.Postcode,
		c.Country, c.ContactName, c.Phone, c.Email, c.Website}
}

const insertClient = `INSERT INTO clients (code, name, notes, address_line1, address_line2, city, state, postcode,
	country, contact_name, phone, email, website)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (p *Postgres) CreateClient(ctx context.Context, c *models.Client) error {
	err := p.q.QueryRowContext(ctx, insertClient+` RETURNING id, created_at, updated_at`, clientArgs(c)...).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError("create client", err)
}

func (p *Postgres) UpsertClient(ctx context.Context, c *models.Client) error {
	err := p.q.QueryRowContext(ctx, insertClient+`
	ON CONFLICT (code) DO UPDATE SET
		name = EXCLUDED.name, notes = EXCLUDED.notes,
		address_line1 = EXCLUDED.address_line1, address_line2 = EXCLUDED.address_line2,
		city = EXCLUDED.city, state = EXCLUDED.state, postcode = EXCLUDED.postcode, country = EXCLUDED.country,
		contact_name = EXCLUDED.contact_name, phone = EXCLUDED.phone, email = EXCLUDED.email,
		website = EXCLUDED.website, updated_at = clock_timestamp()
	RETURNING id, created_at, updated_at`, clientArgs(c)...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError("upsert client", err)
}

func (p *Postgres) DeleteClient(ctx context.Context, id int64) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapError("delete client", err)
	}
	return requireAffected(res, "delete client", "Client not found")
}

// Locations

const locationColumns = `id, client_id, kind, code, name, parent_id, path, notes, created_at, updated_at`

func scanLocation(row scanner) (models.Location, error) {
	var l models.Location
	var path pq.Int64Array
	err := row.Scan(&l.ID, &l.ClientID, (*string)(&l.Kind), &l.Code, &l.Name, &l.ParentID, &path, &l.Notes,
		&l.CreatedAt, &l.UpdatedAt)
	l.Path = []int64(nonNilPath(path))
	return l, err
}

func locationWhere(f LocationFilter) *where {
	w := &where{}
	if f.ClientID != 0 {
		w.add("client_id = $%d", f.ClientID)
	}
	if f.RootOnly {
		w.raw("parent_id IS NULL")
	}
	if f.ParentID != nil {
		w.add("parent_id = $%d", *f.ParentID)
	}
	if f.Code != "" {
		w.add("code = $%d", f.Code)
	}
	return w
}

func (p *Postgres) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	w := locationWhere(f)
	rows, err := p.q.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, mapError("list locations", err)
	}
	defer rows.Close()
	out := []models.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, mapError("scan location", err)
		}
		out = append(out, l)
	}
	return out, mapError("list locations", rows.Err())
}

func (p *Postgres) CountLocations(ctx context.Context, f LocationFilter) (int, error) {
	w := locationWhere(f)
	var n int
	err := p.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`+w.String(), w.args...).Scan(&n)
	return n, mapError("count locations", err)
}

func (p *Postgres) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	l, err := scanLocation(p.q.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get location", "Location not found", err)
	}
	return &l, nil
}

func (p *Postgres) CreateLocation(ctx context.Context, l *models.Location) error {
	if l.Path == nil {
		l.Path = []int64{}
	}
	err := p.q.QueryRowContext(ctx, `INSERT INTO locations (client_id, kind, code, name, parent_id, path, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		l.ClientID, string(l.Kind), l.Code, l.Name, l.ParentID, nonNilPath(l.Path), l.Notes,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return mapError("create location", err)
}

func (p *Postgres) UpdateLocation(ctx context.Context, l *models.Location) error {
	err := p.q.QueryRowContext(ctx, `UPDATE locations
		SET kind = $2, code = $3, name = $4, parent_id = $5, path = $6, notes = $7, updated_at = clock_timestamp()
		WHERE id = $1 RETURNING created_at, updated_at`,
		l.ID, string(l.Kind), l.Code, l.Name, l.ParentID, nonNilPath(l.Path), l.Notes,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return notFoundOr("update location", "Location not found", err)
	}
	return nil
}

func (p *Postgres) DeleteLocation(ctx context.Context, id int64) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return mapError("delete location", err)
	}
	return requireAffected(res, "delete location", "Location not found")
}

// Assets

const assetColumns = `id, client_id, location_id, name, tag, category, model, serial, status, notes,
	bom, attachments, main_photo, created_at, updated_at`

func scanAsset(row scanner) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.ClientID, &a.LocationID, &a.Name, &a.Tag, &a.Category, &a.Model, &a.Serial,
		(*string)(&a.Status), &a.Notes, &a.BOM, &a.Attachments, &a.MainPhoto, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func assetWhere(f AssetFilter) *where {
	w := &where{}
	if f.ClientID != 0 {
		w.add("client_id = $%d", f.ClientID)
	}
	if f.LocationID != 0 {
		w.add("location_id = $%d", f.LocationID)
	}
	if f.Tag != "" {
		w.add("tag = $%d", f.Tag)
	}
	return w
}

func (p *Postgres) ListAssets(ctx context.Context, f AssetFilter) ([]models.Asset, error) {
	w := assetWhere(f)
	rows, err := p.q.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, mapError("list assets", err)
	}
	defer rows.Close()
	out := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, mapError("scan asset", err)
		}
		out = append(out, a)
	}
	return out, mapError("list assets", rows.Err())
}

func (p *Postgres) CountAssets(ctx context.Context, f AssetFilter) (int, error) {
	w := assetWhere(f)
	var n int
	err := p.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`+w.String(), w.args...).Scan(&n)
	return n, mapError("count assets", err)
}

func (p *Postgres) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := scanAsset(p.q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get asset", "Asset not found", err)
	}
	return &a, nil
}

const insertAsset = `INSERT INTO assets (client_id, location_id, name, tag, category, model, serial, status, notes,
	bom, attachments, main_photo)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func assetArgs(a *models.Asset) []any {
	return []any{a.ClientID, a.LocationID, a.Name, a.Tag, a.Category, a.Model, a.Serial, string(a.Status), a.Notes,
		a.BOM, a.Attachments, a.MainPhoto}
}

func (p *Postgres) CreateAsset(ctx context.Context, a *models.Asset) error {
	err := p.q.QueryRowContext(ctx, insertAsset+` RETURNING id, created_at, updated_at`, assetArgs(a)...).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError("create asset", err)
}

func (p *Postgres) UpdateAsset(ctx context.Context, a *models.Asset) error {
	err := p.q.QueryRowContext(ctx, `UPDATE assets SET
		client_id = $2, location_id = $3, name = $4, tag = $5, category = $6, model = $7, serial = $8,
		status = $9, notes = $10, bom = $11, attachments = $12, main_photo = $13, updated_at = clock_timestamp()
		WHERE id = $1 RETURNING created_at, updated_at`,
		append([]any{a.ID}, assetArgs(a)...)...,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return notFoundOr("update asset", "Asset not found", err)
	}
	return nil
}

func (p *Postgres) UpsertAsset(ctx context.Context, a *models.Asset) error {
	err := p.q.QueryRowContext(ctx, insertAsset+`
	ON CONFLICT ON CONSTRAINT assets_natural_key DO UPDATE SET
		category = EXCLUDED.category, model = EXCLUDED.model, serial = EXCLUDED.serial,
		status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = clock_timestamp()
	RETURNING id, bom, attachments, main_photo, created_at, updated_at`, assetArgs(a)...,
	).Scan(&a.ID, &a.BOM, &a.Attachments, &a.MainPhoto, &a.CreatedAt, &a.UpdatedAt)
	return mapError("upsert asset", err)
}

// Parts

const partColumns = `id, internal_sku, name, category, unit, notes, supplier_options,
	on_hand, standard_cost, reorder_point, reorder_qty, created_at, updated_at`

func scanPart(row scanner) (models.Part, error) {
	var p models.Part
	err := row.Scan(&p.ID, &p.InternalSKU, &p.Name, &p.Category, &p.Unit, &p.Notes, &p.SupplierOptions,
		&p.Internal.OnHand, &p.Internal.StandardCost, &p.Internal.ReorderPoint, &p.Internal.ReorderQty,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func supplierContainment(supplierID int64) string {
	return fmt.Sprintf(`[{"supplier_id": %d}]`, supplierID)
}

func (p *Postgres) ListParts(ctx context.Context, f PartFilter) ([]models.Part, error) {
	w := &where{}
	if len(f.IDs) > 0 {
		w.add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if f.LinkedTo != 0 {
		w.add("supplier_options @> $%d::jsonb", supplierContainment(f.LinkedTo))
	}
	if f.NotLinkedTo != 0 {
		w.add("NOT (supplier_options @> $%d::jsonb)", supplierContainment(f.NotLinkedTo))
	}
	rows, err := p.q.QueryContext(ctx, `SELECT `+partColumns+` FROM parts`+w.String()+` ORDER BY internal_sku`, w.args...)
	if err != nil {
		return nil, mapError("list parts", err)
	}
	defer rows.Close()
	out := []models.Part{}
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, mapError("scan part", err)
		}
		out = append(out, part)
	}
	return out, mapError("list parts", rows.Err())
}

func (p *Postgres) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	part, err := scanPart(p.q.QueryRowContext(ctx, `SELECT `+partColumns+` FROM parts WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get part", "Part not found", err)
	}
	return &part, nil
}

func (p *Postgres) GetPartBySKU(ctx context.Context, sku string) (*models.Part, error) {
	part, err := scanPart(p.q.QueryRowContext(ctx, `SELECT `+partColumns+` FROM parts WHERE internal_sku = $1`, sku))
	if err != nil {
		return nil, notFoundOr("get part", "Part not found", err)
	}
	return &part, nil
}

const insertPart = `INSERT INTO parts (internal_sku, name, category, unit, notes, supplier_options,
	on_hand, standard_cost, reorder_point, reorder_qty)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func partArgs(p *models.Part) []any {
	return []any{p.InternalSKU, p.Name, p.Category, p.Unit, p.Notes, p.SupplierOptions,
		p.Internal.OnHand, p.Internal.StandardCost, p.Internal.ReorderPoint, p.Internal.ReorderQty}
}

func (p *Postgres) CreatePart(ctx context.Context, part *models.Part) error {
	err := p.q.QueryRowContext(ctx, insertPart+` RETURNING id, created_at, updated_at`, partArgs(part)...).
		Scan(&part.ID, &part.CreatedAt, &part.UpdatedAt)
	return mapError("create part", err)
}

func (p *Postgres) UpdatePart(ctx context.Context, part *models.Part) error {
	err := p.q.QueryRowContext(ctx, `UPDATE parts SET
		internal_sku = $2, name = $3, category = $4, unit = $5, notes = $6, supplier_options = $7,
		on_hand = $8, standard_cost = $9, reorder_point = $10, reorder_qty = $11, updated_at = clock_timestamp()
		WHERE id = $1 RETURNING created_at, updated_at`,
		append([]any{part.ID}, partArgs(part)...)...,
	).Scan(&part.CreatedAt, &part.UpdatedAt)
	if err != nil {
		return notFoundOr("update part", "Part not found", err)
	}
	return nil
}

func (p *Postgres) UpsertPart(ctx context.Context, part *models.Part) error {
	err := p.q.QueryRowContext(ctx, insertPart+`
	ON CONFLICT (internal_sku) DO UPDATE SET
		name = EXCLUDED.name, category = EXCLUDED.category, unit = EXCLUDED.unit, notes = EXCLUDED.notes,
		on_hand = EXCLUDED.on_hand, standard_cost = EXCLUDED.standard_cost,
		reorder_point = EXCLUDED.reorder_point, reorder_qty = EXCLUDED.reorder_qty,
		updated_at = clock_timestamp()
	RETURNING id, supplier_options, created_at, updated_at`, partArgs(part)...,
	).Scan(&part.ID, &part.SupplierOptions, &part.CreatedAt, &part.UpdatedAt)
	return mapError("upsert part", err)
}

// Suppliers

const supplierColumns = `id, code, name, email, phone, website, address, notes, created_at, updated_at`

func scanSupplier(row scanner) (models.Supplier, error) {
	var s models.Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Phone, &s.Website, &s.Address, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (p *Postgres) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY code`)
	if err != nil {
		return nil, mapError("list suppliers", err)
	}
	defer rows.Close()
	out := []models.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, mapError("scan supplier", err)
		}
		out = append(out, s)
	}
	return out, mapError("list suppliers", rows.Err())
}

func (p *Postgres) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	s, err := scanSupplier(p.q.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get supplier", "Supplier not found", err)
	}
	return &s, nil
}

func (p *Postgres) GetSupplierByCode(ctx context.Context, code string) (*models.Supplier, error) {
	s, err := scanSupplier(p.q.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE code = $1`, code))
	if err != nil {
		return nil, notFoundOr("get supplier", "Supplier not found", err)
	}
	return &s, nil
}

const insertSupplier = `INSERT INTO suppliers (code, name, email, phone, website, address, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func supplierArgs(s *models.Supplier) []any {
	return []any{s.Code, s.Name, s.Email, s.Phone, s.Website, s.Address, s.Notes}
}

func (p *Postgres) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	err := p.q.QueryRowContext(ctx, insertSupplier+` RETURNING id, created_at, updated_at`, supplierArgs(s)...).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError("create supplier", err)
}

func (p *Postgres) UpsertSupplier(ctx context.Context, s *models.Supplier) error {
	err := p.q.QueryRowContext(ctx, insertSupplier+`
	ON CONFLICT (code) DO UPDATE SET
		name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone, website = EXCLUDED.website,
		address = EXCLUDED.address, notes = EXCLUDED.notes, updated_at = clock_timestamp()
	RETURNING id, created_at, updated_at`, supplierArgs(s)...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError("upsert supplier", err)
}

// Jobs

const jobColumns = `id, job_number, po_number, client_id, location_id, asset_id, title, description,
	start_date, quote_due_date, status, resources, attachments, created_at, updated_at`

func scanJob(row scanner, extra ...any) (models.Job, error) {
	var j models.Job
	dest := []any{&j.ID, &j.JobNumber, &j.PONumber, &j.ClientID, &j.LocationID, &j.AssetID, &j.Title,
		&j.Description, &j.StartDate, &j.QuoteDueDate, (*string)(&j.Status), &j.Resources, &j.Attachments,
		&j.CreatedAt, &j.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return j, err
}

func (p *Postgres) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, int, error) {
	w := &where{}
	if f.ClientID != 0 {
		w.add("client_id = $%d", f.ClientID)
	}
	if f.AssetID != 0 {
		w.add("asset_id = $%d", f.AssetID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	sqlStr := `SELECT ` + jobColumns + `, COUNT(*) OVER() AS total_count FROM jobs` + w.String() + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		sqlStr += fmt.Sprintf(" OFFSET %d", f.Offset)
	}
	rows, err := p.q.QueryContext(ctx, sqlStr, w.args...)
	if err != nil {
		return nil, 0, mapError("list jobs", err)
	}
	defer rows.Close()
	out := []models.Job{}
	var total int
	for rows.Next() {
		j, err := scanJob(rows, &total)
		if err != nil {
			return nil, 0, mapError("scan job", err)
		}
		out = append(out, j)
	}
	return out, total, mapError("list jobs", rows.Err())
}

func (p *Postgres) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	j, err := scanJob(p.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get job", "Job not found", err)
	}
	return &j, nil
}

const insertJob = `INSERT INTO jobs (job_number, po_number, client_id, location_id, asset_id, title, description,
	start_date, quote_due_date, status, resources, attachments)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func jobArgs(j *models.Job) []any {
	return []any{j.JobNumber, j.PONumber, j.ClientID, j.LocationID, j.AssetID, j.Title, j.Description,
		j.StartDate, j.QuoteDueDate, string(j.Status), j.Resources, j.Attachments}
}

func (p *Postgres) CreateJob(ctx context.Context, j *models.Job) error {
	err := p.q.QueryRowContext(ctx, insertJob+` RETURNING id, created_at, updated_at`, jobArgs(j)...).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	return mapError("create job", err)
}

func (p *Postgres) UpdateJob(ctx context.Context, j *models.Job) error {
	err := p.q.QueryRowContext(ctx, `UPDATE jobs SET
		job_number = $2, po_number = $3, client_id = $4, location_id = $5, asset_id = $6, title = $7,
		description = $8, start_date = $9, quote_due_date = $10, status = $11, resources = $12,
		attachments = $13, updated_at = clock_timestamp()
		WHERE id = $1 RETURNING created_at, updated_at`,
		append([]any{j.ID}, jobArgs(j)...)...,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return notFoundOr("update job", "Job not found", err)
	}
	return nil
}

func (p *Postgres) UpsertJob(ctx context.Context, j *models.Job) error {
	err := p.q.QueryRowContext(ctx, insertJob+`
	ON CONFLICT (job_number) DO UPDATE SET
		po_number = EXCLUDED.po_number, client_id = EXCLUDED.client_id, location_id = EXCLUDED.location_id,
		asset_id = EXCLUDED.asset_id, title = EXCLUDED.title, description = EXCLUDED.description,
		start_date = EXCLUDED.start_date, quote_due_date = EXCLUDED.quote_due_date, status = EXCLUDED.status,
		updated_at = clock_timestamp()
	RETURNING id, resources, attachments, created_at, updated_at`, jobArgs(j)...,
	).Scan(&j.ID, &j.Resources, &j.Attachments, &j.CreatedAt, &j.UpdatedAt)
	return mapError("upsert job", err)
}

// BOM templates

const templateColumns = `id, name, client_id, category, lines, created_at, updated_at`

func scanTemplate(row scanner) (models.BomTemplate, error) {
	var t models.BomTemplate
	err := row.Scan(&t.ID, &t.Name, &t.ClientID, &t.Category, &t.Lines, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (p *Postgres) ListBomTemplates(ctx context.Context, clientID *int64) ([]models.BomTemplate, error) {
	w := &where{}
	if clientID != nil {
		w.add("(client_id IS NULL OR client_id = $%d)", *clientID)
	}
	rows, err := p.q.QueryContext(ctx, `SELECT `+templateColumns+` FROM bom_templates`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, mapError("list bom templates", err)
	}
	defer rows.Close()
	out := []models.BomTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, mapError("scan bom template", err)
		}
		out = append(out, t)
	}
	return out, mapError("list bom templates", rows.Err())
}

func (p *Postgres) GetBomTemplate(ctx context.Context, id int64) (*models.BomTemplate, error) {
	t, err := scanTemplate(p.q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM bom_templates WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get bom template", "BOM template not found", err)
	}
	return &t, nil
}

func (p *Postgres) CreateBomTemplate(ctx context.Context, t *models.BomTemplate) error {
	err := p.q.QueryRowContext(ctx, `INSERT INTO bom_templates (name, client_id, category, lines)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		t.Name, t.ClientID, t.Category, t.Lines,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError("create bom template", err)
}

// Users

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := p.q.QueryRowContext(ctx, `SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFoundOr("get user", "User not found", err)
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	err := p.q.QueryRowContext(ctx, `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapError("create user", err)
}
