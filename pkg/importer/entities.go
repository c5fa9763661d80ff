package importer

import (
	"context"
	"strconv"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/locations"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/shopspring/decimal"
)

// asRef turns a missing lookup into a row-scoped reference error.
func asRef(err error, message string) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.RefNotFound(message)
	}
	return err
}

func (e *Engine) applyClient(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	c := &models.Client{
		Code:         models.NormalizeCode(row.Get("code")),
		Name:         row.Get("name"),
		Notes:        row.Get("notes"),
		AddressLine1: row.Get("addressLine1"),
		AddressLine2: row.Get("addressLine2"),
		City:         row.Get("city"),
		State:        row.Get("state"),
		Postcode:     row.Get("postcode"),
		Country:      row.Get("country"),
		ContactName:  row.Get("contactName"),
		Phone:        row.Get("phone"),
		Email:        row.Get("email"),
		Website:      row.Get("website"),
	}
	if b.dryRun {
		return false, nil
	}
	if err := st.UpsertClient(ctx, c); err != nil {
		return false, err
	}
	return store.Inserted(c.CreatedAt, c.UpdatedAt), nil
}

func (e *Engine) applyLocation(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	client, err := st.GetClientByCode(ctx, models.NormalizeCode(row.Get("client_code")))
	if err != nil {
		return false, asRef(err, "client_code not found")
	}
	kind, ok := models.ParseLocationKind(row.Get("kind"))
	if !ok {
		return false, apperr.Validation("kind must be site or area")
	}
	code, parentCode := row.Get("code"), row.Get("parent_code")

	var parent *models.Location
	switch kind {
	case models.LocationSite:
		if parentCode != "" {
			return false, apperr.Validation("Sites cannot have a parent")
		}
	case models.LocationArea:
		if parentCode == "" {
			return false, apperr.Required("parent_code")
		}
		parent, err = findSite(ctx, st, client.ID, parentCode)
		if err != nil {
			// A site row earlier in the dry run may create the parent or
			// turn an area with the same code into a site.
			pending := b.dryRun && apperr.IsRowScoped(err) && b.hasPendingSite(client.ID, parentCode)
			if !pending {
				return false, err
			}
		}
	}

	if b.dryRun {
		if kind == models.LocationSite {
			b.addPendingSite(client.ID, code)
		}
		return false, nil
	}
	_, ins, err := locations.Upsert(ctx, st, locations.UpsertInput{
		ClientID: client.ID,
		Kind:     kind,
		Code:     code,
		Name:     row.Get("name"),
		Parent:   parent,
	})
	return ins, err
}

// findSite resolves parent_code to a root site of the client.
func findSite(ctx context.Context, st store.Store, clientID int64, code string) (*models.Location, error) {
	locs, err := st.ListLocations(ctx, store.LocationFilter{ClientID: clientID, Code: code})
	if err != nil {
		return nil, err
	}
	for i := range locs {
		if locs[i].Kind == models.LocationSite && locs[i].IsRoot() {
			return &locs[i], nil
		}
	}
	if len(locs) > 0 {
		return nil, apperr.Validation("parent_code must reference a site")
	}
	return nil, apperr.RefNotFound("parent_code not found")
}

func (e *Engine) applyAsset(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	loc, err := resolveAssetLocation(ctx, st, models.NormalizeCode(row.Get("client_code")), row.Get("location_code"))
	if err != nil {
		return false, err
	}
	a := &models.Asset{
		ClientID:   loc.ClientID,
		LocationID: loc.ID,
		Name:       row.Get("name"),
		Tag:        row.Get("tag"),
		Category:   row.Get("category"),
		Model:      row.Get("model"),
		Serial:     row.Get("serial"),
		Status:     models.ParseAssetStatus(row.Get("status")),
		Notes:      row.Get("notes"),
	}
	if b.dryRun {
		return false, nil
	}
	if err := st.UpsertAsset(ctx, a); err != nil {
		return false, err
	}
	return store.Inserted(a.CreatedAt, a.UpdatedAt), nil
}

// resolveAssetLocation finds the location an asset row points at. Without
// a client code the location code is looked up across every client and
// must match exactly one location.
func resolveAssetLocation(ctx context.Context, st store.Store, clientCode, locCode string) (*models.Location, error) {
	if clientCode != "" {
		client, err := st.GetClientByCode(ctx, clientCode)
		if err != nil {
			return nil, asRef(err, "client_code not found")
		}
		locs, err := st.ListLocations(ctx, store.LocationFilter{ClientID: client.ID, Code: locCode})
		if err != nil {
			return nil, err
		}
		switch len(locs) {
		case 0:
			return nil, apperr.RefNotFound("location_code not found for client")
		case 1:
			return &locs[0], nil
		default:
			return nil, apperr.Ambiguous("ambiguous location_code within client: " + locCode)
		}
	}

	locs, err := st.ListLocations(ctx, store.LocationFilter{Code: locCode})
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, apperr.RefNotFound("location_code not found: " + locCode)
	}
	if len(locs) > 1 {
		return nil, apperr.Ambiguous("ambiguous location_code (exists under multiple clients): " + locCode)
	}
	return &locs[0], nil
}

func (e *Engine) applyPart(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	unit := row.Get("unit")
	if unit == "" {
		unit = models.DefaultUnit
	}
	p := &models.Part{
		InternalSKU: row.Get("internalSku"),
		Name:        row.Get("name"),
		Category:    row.Get("category"),
		Unit:        unit,
		Notes:       row.Get("notes"),
		Internal: models.PartInternal{
			OnHand:       decimalOr(row.Get("onHand"), decimal.Zero),
			StandardCost: decimalOr(row.Get("standardCost"), decimal.Zero),
			ReorderPoint: decimalOr(row.Get("reorderPoint"), decimal.Zero),
			ReorderQty:   decimalOr(row.Get("reorderQty"), decimal.Zero),
		},
	}
	if b.dryRun {
		return false, nil
	}
	if err := st.UpsertPart(ctx, p); err != nil {
		return false, err
	}
	return store.Inserted(p.CreatedAt, p.UpdatedAt), nil
}

func (e *Engine) applySupplier(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	s := &models.Supplier{
		Code:    models.NormalizeCode(row.Get("code")),
		Name:    row.Get("name"),
		Email:   row.Get("email"),
		Phone:   row.Get("phone"),
		Website: row.Get("website"),
		Address: row.Get("address"),
		Notes:   row.Get("notes"),
	}
	if b.dryRun {
		return false, nil
	}
	if err := st.UpsertSupplier(ctx, s); err != nil {
		return false, err
	}
	return store.Inserted(s.CreatedAt, s.UpdatedAt), nil
}

// applySupplierPart links a supplier to a part. The option for that
// supplier is replaced if present and appended otherwise; an append counts
// as an insert.
func (e *Engine) applySupplierPart(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	sup, err := st.GetSupplierByCode(ctx, models.NormalizeCode(row.Get("supplier_code")))
	if err != nil {
		return false, asRef(err, "supplier_code not found")
	}
	part, err := st.GetPartBySKU(ctx, row.Get("part_internalSku"))
	if err != nil {
		return false, asRef(err, "part_internalSku not found")
	}
	opt := models.SupplierOption{
		SupplierID:   sup.ID,
		SupplierSKU:  row.Get("supplierSku"),
		Price:        decimalOr(row.Get("price"), decimal.Zero),
		Currency:     strings.ToUpper(row.Get("currency")),
		LeadTimeDays: intOr(row.Get("leadTimeDays"), 0),
		MOQ:          intOr(row.Get("moq"), models.DefaultMOQ),
		Preferred:    boolExact(row.Get("preferred")),
	}
	if b.dryRun {
		return false, nil
	}
	replaced := part.LinkSupplier(opt)
	if err := st.UpdatePart(ctx, part); err != nil {
		return false, err
	}
	return !replaced, nil
}

func (e *Engine) applyJob(ctx context.Context, st store.Store, b *batch, row Row) (bool, error) {
	client, err := st.GetClientByCode(ctx, models.NormalizeCode(row.Get("client_code")))
	if err != nil {
		return false, asRef(err, "client_code not found")
	}
	j := &models.Job{
		JobNumber:   row.Get("jobNumber"),
		PONumber:    row.Get("poNumber"),
		ClientID:    client.ID,
		Title:       row.Get("title"),
		Description: row.Get("description"),
		Status:      models.ParseJobStatus(row.Get("status")),
	}
	if code := row.Get("location_code"); code != "" {
		locs, err := st.ListLocations(ctx, store.LocationFilter{ClientID: client.ID, Code: code})
		if err != nil {
			return false, err
		}
		switch len(locs) {
		case 0:
			return false, apperr.RefNotFound("location_code not found for client")
		case 1:
			j.LocationID = &locs[0].ID
		default:
			return false, apperr.Ambiguous("ambiguous location_code within client: " + code)
		}
	}
	if tag := row.Get("asset_tag"); tag != "" {
		assets, err := st.ListAssets(ctx, store.AssetFilter{ClientID: client.ID, Tag: tag})
		if err != nil {
			return false, err
		}
		switch len(assets) {
		case 0:
			return false, apperr.RefNotFound("asset_tag not found for client")
		case 1:
			j.AssetID = &assets[0].ID
		default:
			return false, apperr.Ambiguous("ambiguous asset_tag within client: " + tag)
		}
	}
	if j.StartDate, err = parseDate("startDate", row.Get("startDate")); err != nil {
		return false, err
	}
	if j.QuoteDueDate, err = parseDate("quoteDueDate", row.Get("quoteDueDate")); err != nil {
		return false, err
	}
	if b.dryRun {
		return false, nil
	}
	if err := st.UpsertJob(ctx, j); err != nil {
		return false, err
	}
	return store.Inserted(j.CreatedAt, j.UpdatedAt), nil
}

// codes maps ids to the code each record is known by in CSV files.
type codes map[int64]string

func (e *Engine) clientCodes(ctx context.Context) (codes, error) {
	clients, err := e.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	m := make(codes, len(clients))
	for _, c := range clients {
		m[c.ID] = c.Code
	}
	return m, nil
}

func (e *Engine) locationCodes(ctx context.Context) (codes, []models.Location, error) {
	locs, err := e.store.ListLocations(ctx, store.LocationFilter{})
	if err != nil {
		return nil, nil, err
	}
	m := make(codes, len(locs))
	for _, l := range locs {
		m[l.ID] = l.Code
	}
	return m, locs, nil
}

func (e *Engine) exportClients(ctx context.Context) ([]Row, error) {
	clients, err := e.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, Row{
			"code":         c.Code,
			"name":         c.Name,
			"notes":        c.Notes,
			"addressLine1": c.AddressLine1,
			"addressLine2": c.AddressLine2,
			"city":         c.City,
			"state":        c.State,
			"postcode":     c.Postcode,
			"country":      c.Country,
			"contactName":  c.ContactName,
			"phone":        c.Phone,
			"email":        c.Email,
			"website":      c.Website,
		})
	}
	return rows, nil
}

func (e *Engine) exportLocations(ctx context.Context) ([]Row, error) {
	clients, err := e.clientCodes(ctx)
	if err != nil {
		return nil, err
	}
	locCodes, locs, err := e.locationCodes(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(locs))
	for _, l := range locs {
		parent := ""
		if l.ParentID != nil {
			parent = locCodes[*l.ParentID]
		}
		rows = append(rows, Row{
			"client_code": clients[l.ClientID],
			"kind":        string(l.Kind),
			"code":        l.Code,
			"name":        l.Name,
			"parent_code": parent,
		})
	}
	return rows, nil
}

func (e *Engine) exportAssets(ctx context.Context) ([]Row, error) {
	clients, err := e.clientCodes(ctx)
	if err != nil {
		return nil, err
	}
	locCodes, _, err := e.locationCodes(ctx)
	if err != nil {
		return nil, err
	}
	assets, err := e.store.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, Row{
			"client_code":   clients[a.ClientID],
			"location_code": locCodes[a.LocationID],
			"name":          a.Name,
			"tag":           a.Tag,
			"category":      a.Category,
			"model":         a.Model,
			"serial":        a.Serial,
			"status":        string(a.Status),
			"notes":         a.Notes,
		})
	}
	return rows, nil
}

func (e *Engine) exportParts(ctx context.Context) ([]Row, error) {
	parts, err := e.store.ListParts(ctx, store.PartFilter{})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, Row{
			"internalSku":  p.InternalSKU,
			"name":         p.Name,
			"category":     p.Category,
			"unit":         p.Unit,
			"notes":        p.Notes,
			"onHand":       p.Internal.OnHand.String(),
			"standardCost": p.Internal.StandardCost.String(),
			"reorderPoint": p.Internal.ReorderPoint.String(),
			"reorderQty":   p.Internal.ReorderQty.String(),
		})
	}
	return rows, nil
}

func (e *Engine) exportSuppliers(ctx context.Context) ([]Row, error) {
	suppliers, err := e.store.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(suppliers))
	for _, s := range suppliers {
		rows = append(rows, Row{
			"code":    s.Code,
			"name":    s.Name,
			"email":   s.Email,
			"phone":   s.Phone,
			"website": s.Website,
			"address": s.Address,
			"notes":   s.Notes,
		})
	}
	return rows, nil
}

func (e *Engine) exportSupplierParts(ctx context.Context) ([]Row, error) {
	suppliers, err := e.store.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	supCodes := make(codes, len(suppliers))
	for _, s := range suppliers {
		supCodes[s.ID] = s.Code
	}
	parts, err := e.store.ListParts(ctx, store.PartFilter{})
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, p := range parts {
		for _, o := range p.SupplierOptions {
			rows = append(rows, Row{
				"supplier_code":    supCodes[o.SupplierID],
				"part_internalSku": p.InternalSKU,
				"supplierSku":      o.SupplierSKU,
				"price":            o.Price.String(),
				"currency":         o.Currency,
				"leadTimeDays":     strconv.Itoa(o.LeadTimeDays),
				"moq":              strconv.Itoa(o.MOQ),
				"preferred":        strconv.FormatBool(o.Preferred),
			})
		}
	}
	return rows, nil
}

func (e *Engine) exportJobs(ctx context.Context) ([]Row, error) {
	clients, err := e.clientCodes(ctx)
	if err != nil {
		return nil, err
	}
	locCodes, _, err := e.locationCodes(ctx)
	if err != nil {
		return nil, err
	}
	assets, err := e.store.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return nil, err
	}
	tags := make(codes, len(assets))
	for _, a := range assets {
		tags[a.ID] = a.Tag
	}
	jobs, _, err := e.store.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(jobs))
	for _, j := range jobs {
		row := Row{
			"jobNumber":    j.JobNumber,
			"poNumber":     j.PONumber,
			"client_code":  clients[j.ClientID],
			"title":        j.Title,
			"description":  j.Description,
			"startDate":    formatDate(j.StartDate),
			"quoteDueDate": formatDate(j.QuoteDueDate),
			"status":       string(j.Status),
		}
		if j.LocationID != nil {
			row["location_code"] = locCodes[*j.LocationID]
		}
		if j.AssetID != nil {
			row["asset_tag"] = tags[*j.AssetID]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
