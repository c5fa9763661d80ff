package importer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func newEngine(t *testing.T) (*Engine, *store.Memory, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	m := store.NewMemory()
	return NewEngine(m, logger), m, hook
}

func importCSV(t *testing.T, e *Engine, typ EntityType, body string, dryRun bool) *Result {
	t.Helper()
	res, err := e.ImportCSV(context.Background(), typ, strings.NewReader(body), dryRun)
	require.NoError(t, err)
	return res
}

func seedClients(t *testing.T, e *Engine, codes ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("code,name\n")
	for _, c := range codes {
		b.WriteString(c + "," + c + " Ltd\n")
	}
	res := importCSV(t, e, Clients, b.String(), false)
	require.Equal(t, 0, res.Summary.Errors, res.Rows)
}

func TestTemplates(t *testing.T) {
	hdr, err := Template(Locations)
	require.NoError(t, err)
	assert.Equal(t, []string{"client_code", "kind(site|area)", "code", "name", "parent_code(optional)"}, hdr)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, Assets))
	assert.Equal(t, "client_code(optional),location_code,name,tag,category,model,serial,status,notes\n", buf.String())

	_, err = Template("widgets")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Len(t, Types(), 7)
	typ, ok := ParseType("supplier_parts")
	assert.True(t, ok)
	assert.Equal(t, SupplierParts, typ)
}

func TestReadCSVStripsBOMAndHints(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader("\xEF\xBB\xBFclient_code,kind(site|area),code\nALCOA,site\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"client_code", "kind", "code"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "site", rows[0].Get("kind"))
	assert.Equal(t, "", rows[0].Get("code"))

	_, _, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rec := range [][]string{
		{"code", "name"},
		{"ALCOA", " Alcoa "},
		{"BHP", "BHP Group"},
	} {
		row := sh.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	header, rows, err := ReadXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "name"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alcoa", rows[0].Get("name"))
	assert.Equal(t, "BHP", rows[1].Get("code"))
}

func TestImportSiteThenAreaInOneBatch(t *testing.T) {
	e, m, _ := newEngine(t)
	seedClients(t, e, "ALCOA")

	res := importCSV(t, e, Locations, "client_code,kind(site|area),code,name,parent_code(optional)\n"+
		"alcoa,site,WG-OC7,Wagerup OC7,\n"+
		"ALCOA,area,PR1,Pump Room 1,WG-OC7\n", false)

	assert.Equal(t, Summary{Inserted: 2, Total: 2}, res.Summary)
	for _, r := range res.Rows {
		assert.True(t, r.OK)
		assert.Equal(t, ActionInsert, r.Action)
	}

	ctx := context.Background()
	sites, err := m.ListLocations(ctx, store.LocationFilter{Code: "WG-OC7"})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	areas, err := m.ListLocations(ctx, store.LocationFilter{Code: "PR1"})
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, []int64{sites[0].ID}, areas[0].Path)
	assert.Equal(t, models.LocationArea, areas[0].Kind)
}

func TestLocationRowErrors(t *testing.T) {
	e, _, _ := newEngine(t)
	seedClients(t, e, "ALCOA")

	res := importCSV(t, e, Locations, "client_code,kind,code,name,parent_code\n"+
		"NOPE,site,S1,Site,\n"+
		"ALCOA,room,S1,Site,\n"+
		"ALCOA,area,A1,Area,\n"+
		"ALCOA,area,A1,Area,MISSING\n"+
		"ALCOA,site,S1,Site,OTHER\n"+
		"ALCOA,site,,Site,\n", false)

	msgs := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		assert.False(t, r.OK)
		assert.Equal(t, ActionError, r.Action)
		msgs = append(msgs, r.Message)
	}
	assert.Equal(t, []string{
		"client_code not found",
		"kind must be site or area",
		"parent_code required",
		"parent_code not found",
		"Sites cannot have a parent",
		"code required",
	}, msgs)
	assert.Equal(t, 6, res.Summary.Errors)
}

func TestDryRunIsPure(t *testing.T) {
	e, m, _ := newEngine(t)
	seedClients(t, e, "ALCOA")
	before := m.Snapshot()

	csv := "client_code,kind,code,name,parent_code\n" +
		"ALCOA,site,WG-OC7,Site,\n" +
		"ALCOA,area,PR1,Pump Room,WG-OC7\n" +
		"ALCOA,area,PR2,Orphan,WG-OC9\n"

	first := importCSV(t, e, Locations, csv, true)
	second := importCSV(t, e, Locations, csv, true)

	assert.Equal(t, first, second)
	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, Summary{Errors: 1, Total: 3}, first.Summary)
	assert.Equal(t, ActionValidate, first.Rows[0].Action)
	assert.Equal(t, ActionValidate, first.Rows[1].Action)
	assert.Equal(t, "parent_code not found", first.Rows[2].Message)
}

func TestDryRunMatchesCommitWhenAreaBecomesSite(t *testing.T) {
	e, _, _ := newEngine(t)
	seedClients(t, e, "ALCOA")
	importCSV(t, e, Locations, "client_code,kind,code,name,parent_code\n"+
		"ALCOA,site,S1,Site One,\n"+
		"ALCOA,area,X,Area X,S1\n", false)

	csv := "client_code,kind,code,name,parent_code\n" +
		"ALCOA,site,X,Site X,\n" +
		"ALCOA,area,Y,Area Y,X\n"

	dry := importCSV(t, e, Locations, csv, true)
	assert.Equal(t, Summary{Total: 2}, dry.Summary, dry.Rows)

	applied := importCSV(t, e, Locations, csv, false)
	assert.Equal(t, Summary{Inserted: 1, Updated: 1, Total: 2}, applied.Summary, applied.Rows)
	for i := range dry.Rows {
		assert.Equal(t, applied.Rows[i].OK, dry.Rows[i].OK)
	}
}

func TestRowIndexFidelity(t *testing.T) {
	e, _, _ := newEngine(t)
	res := importCSV(t, e, Suppliers, "code,name\nACME,Acme\n,Nameless\nSEAL,\nSEAL,Seal Co\n,\n", false)

	require.Len(t, res.Rows, 5)
	for i, r := range res.Rows {
		assert.Equal(t, i+1, r.RowIndex)
	}
	assert.Equal(t, Summary{Inserted: 2, Errors: 3, Total: 5}, res.Summary)
	assert.Equal(t, "code required", res.Rows[1].Message)
	assert.Equal(t, "name required", res.Rows[2].Message)
}

func TestAssetLocationAmbiguity(t *testing.T) {
	e, _, _ := newEngine(t)
	seedClients(t, e, "ALCOA", "BHP")
	importCSV(t, e, Locations, "client_code,kind,code,name\nALCOA,site,MAIN,Alcoa Main\nBHP,site,MAIN,BHP Main\n", false)

	res := importCSV(t, e, Assets, "client_code,location_code,name,tag\n,MAIN,Pump,P-1\nBHP,MAIN,Pump,P-1\n", false)

	require.Len(t, res.Rows, 2)
	assert.False(t, res.Rows[0].OK)
	assert.Equal(t, "ambiguous location_code (exists under multiple clients): MAIN", res.Rows[0].Message)
	assert.True(t, res.Rows[1].OK)
	assert.Equal(t, ActionInsert, res.Rows[1].Action)
}

func TestAssetLocationAmbiguousWithinOneClient(t *testing.T) {
	e, m, _ := newEngine(t)
	seedClients(t, e, "ALCOA")
	importCSV(t, e, Locations, "client_code,kind,code,name\nALCOA,site,S1,Site One\nALCOA,site,S2,Site Two\n", false)

	ctx := context.Background()
	for _, site := range []string{"S1", "S2"} {
		locs, err := m.ListLocations(ctx, store.LocationFilter{Code: site})
		require.NoError(t, err)
		require.Len(t, locs, 1)
		parent := locs[0]
		require.NoError(t, m.CreateLocation(ctx, &models.Location{
			ClientID: parent.ClientID,
			ParentID: &parent.ID,
			Path:     parent.ChildPath(),
			Kind:     models.LocationArea,
			Code:     "PUMP",
			Name:     "Pump Bay",
		}))
	}

	res := importCSV(t, e, Assets, "location_code,name\nPUMP,Pump\n", false)
	require.Len(t, res.Rows, 1)
	assert.False(t, res.Rows[0].OK)
	assert.Equal(t, "ambiguous location_code (exists under multiple clients): PUMP", res.Rows[0].Message)
}

func TestAssetClientInference(t *testing.T) {
	e, m, _ := newEngine(t)
	seedClients(t, e, "ALCOA", "BHP")
	importCSV(t, e, Locations, "client_code,kind,code,name\nBHP,site,MINE-1,Mine\n", false)

	res := importCSV(t, e, Assets, "location_code,name,status\nMINE-1,Crusher,SPARE\n", false)
	require.True(t, res.Rows[0].OK, res.Rows[0].Message)

	assets, err := m.ListAssets(context.Background(), store.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	bhp, err := m.GetClientByCode(context.Background(), "BHP")
	require.NoError(t, err)
	assert.Equal(t, bhp.ID, assets[0].ClientID)
	assert.Equal(t, models.AssetSpare, assets[0].Status)
}

func TestAssetLocationNotFound(t *testing.T) {
	e, _, _ := newEngine(t)
	seedClients(t, e, "ALCOA")

	res := importCSV(t, e, Assets, "client_code(optional),location_code,name\n,NOWHERE,Pump\n", false)
	assert.Equal(t, 1, res.Summary.Errors)
	assert.Equal(t, "location_code not found: NOWHERE", res.Rows[0].Message)

	res = importCSV(t, e, Assets, "client_code,location_code,name\nALCOA,NOWHERE,Pump\n", false)
	assert.Equal(t, "location_code not found for client", res.Rows[0].Message)
}

func TestImportIsIdempotent(t *testing.T) {
	e, m, _ := newEngine(t)
	ctx := context.Background()
	seedClients(t, e, "ALCOA")
	importCSV(t, e, Locations, "client_code,kind,code,name,parent_code\nALCOA,site,S1,Site,\nALCOA,area,A1,Area,S1\n", false)

	cases := []struct {
		typ   EntityType
		csv   string
		count func() int
	}{
		{Assets, "location_code,name,tag\nS1,Pump,P-1\nA1,Pump,P-1\nA1,Motor,\n", func() int {
			a, _ := m.ListAssets(ctx, store.AssetFilter{})
			return len(a)
		}},
		{Parts, "internalSku,name,onHand\nINT-1,Seal,4\nINT-2,Impeller,x\n", func() int {
			p, _ := m.ListParts(ctx, store.PartFilter{})
			return len(p)
		}},
		{Suppliers, "code,name\nacme,Acme\nSEAL,Seal Co\n", func() int {
			s, _ := m.ListSuppliers(ctx)
			return len(s)
		}},
		{SupplierParts, "supplier_code,part_internalSku,price,preferred\nACME,INT-1,12.50,true\nSEAL,INT-1,13,TRUE\nACME,INT-2,,\n", func() int {
			p, _ := m.ListParts(ctx, store.PartFilter{})
			n := 0
			for _, part := range p {
				n += len(part.SupplierOptions)
			}
			return n
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			first := importCSV(t, e, tc.typ, tc.csv, false)
			n := first.Summary.Total
			assert.Equal(t, Summary{Inserted: n, Total: n}, first.Summary, first.Rows)
			count := tc.count()

			second := importCSV(t, e, tc.typ, tc.csv, false)
			assert.Equal(t, Summary{Updated: n, Total: n}, second.Summary, second.Rows)
			assert.Equal(t, count, tc.count())
		})
	}

	part, err := m.GetPartBySKU(ctx, "INT-1")
	require.NoError(t, err)
	require.Len(t, part.SupplierOptions, 2)
	assert.True(t, part.SupplierOptions[0].Preferred)
	assert.False(t, part.SupplierOptions[1].Preferred)
	assert.Equal(t, "12.5", part.SupplierOptions[0].Price.String())
	assert.Equal(t, models.DefaultCurrency, part.SupplierOptions[0].Currency)

	other, err := m.GetPartBySKU(ctx, "INT-2")
	require.NoError(t, err)
	assert.True(t, other.Internal.OnHand.IsZero())
	assert.Equal(t, models.DefaultUnit, other.Unit)
}

func TestSupplierPartReferences(t *testing.T) {
	e, _, _ := newEngine(t)
	importCSV(t, e, Suppliers, "code,name\nACME,Acme\n", false)

	res := importCSV(t, e, SupplierParts, "supplier_code,part_internalSku\nNOPE,INT-1\nACME,INT-1\n", false)
	assert.Equal(t, "supplier_code not found", res.Rows[0].Message)
	assert.Equal(t, "part_internalSku not found", res.Rows[1].Message)
}

func TestImportJobs(t *testing.T) {
	e, m, _ := newEngine(t)
	seedClients(t, e, "ALCOA")
	importCSV(t, e, Locations, "client_code,kind,code,name\nALCOA,site,S1,Site\n", false)
	importCSV(t, e, Assets, "client_code,location_code,name,tag\nALCOA,S1,Pump,P-1\n", false)

	res := importCSV(t, e, Jobs, "jobNumber,client_code,location_code,asset_tag,title,startDate,status\n"+
		"J-100,ALCOA,S1,P-1,Rebuild pump,2024-03-01,Planned\n"+
		"J-101,ALCOA,,,Survey,,whatever\n"+
		"J-102,ALCOA,,P-9,Missing asset,,\n"+
		"J-103,ALCOA,,,Bad date,someday,\n", false)

	assert.Equal(t, Summary{Inserted: 2, Errors: 2, Total: 4}, res.Summary)
	assert.Equal(t, "asset_tag not found for client", res.Rows[2].Message)
	assert.Equal(t, "startDate must be a date (YYYY-MM-DD)", res.Rows[3].Message)

	jobs, total, err := m.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, models.JobPlanned, jobs[0].Status)
	require.NotNil(t, jobs[0].AssetID)
	require.NotNil(t, jobs[0].StartDate)
	assert.Equal(t, "2024-03-01", jobs[0].StartDate.Format("2006-01-02"))
	assert.Equal(t, models.JobInvestigateQuote, jobs[1].Status)
	assert.Nil(t, jobs[1].LocationID)
}

func TestExportProjectsCodes(t *testing.T) {
	e, _, _ := newEngine(t)
	seedClients(t, e, "ALCOA")
	importCSV(t, e, Locations, "client_code,kind,code,name,parent_code\nALCOA,site,S1,Site,\nALCOA,area,A1,Area,S1\n", false)
	importCSV(t, e, Assets, "location_code,name,tag,serial\nA1,Pump,P-1,SN1\n", false)

	var buf bytes.Buffer
	require.NoError(t, e.Export(context.Background(), Locations, &buf))
	assert.Equal(t, "client_code,kind(site|area),code,name,parent_code(optional)\n"+
		"ALCOA,site,S1,Site,\n"+
		"ALCOA,area,A1,Area,S1\n", buf.String())

	buf.Reset()
	require.NoError(t, e.Export(context.Background(), Assets, &buf))
	assert.Equal(t, "client_code(optional),location_code,name,tag,category,model,serial,status,notes\n"+
		"ALCOA,A1,Pump,P-1,,,SN1,active,\n", buf.String())

	// an export can be fed straight back in
	res := importCSV(t, e, Assets, buf.String(), false)
	assert.Equal(t, Summary{Updated: 1, Total: 1}, res.Summary)
}

type brokenStore struct {
	store.Store
}

func (brokenStore) ListLocations(context.Context, store.LocationFilter) ([]models.Location, error) {
	return nil, apperr.Infrastructure("list locations", assert.AnError)
}

func TestInfrastructureFailureAbortsBatch(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := NewEngine(brokenStore{store.NewMemory()}, logger)

	rows := []Row{{"name": "Pump"}, {"location_code": "S1", "name": "Pump"}, {"location_code": "S2", "name": "Motor"}}
	res, err := e.Import(context.Background(), Assets, rows, true)
	require.Error(t, err)
	assert.False(t, apperr.IsRowScoped(err))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "location_code required", res.Rows[0].Message)
	assert.Equal(t, ActionError, res.Rows[1].Action)
	assert.Equal(t, "store unavailable", res.Rows[1].Message)
	assert.NotContains(t, res.Rows[1].Message, assert.AnError.Error())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestImportLogsSummary(t *testing.T) {
	e, _, hook := newEngine(t)
	importCSV(t, e, Clients, "code,name\nALCOA,Alcoa\n", true)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "import finished", entry.Message)
	assert.Equal(t, Clients, entry.Data["type"])
	assert.Equal(t, true, entry.Data["dry_run"])
	assert.NotEmpty(t, entry.Data["run_id"])
	assert.Equal(t, 1, entry.Data["total"])
}
