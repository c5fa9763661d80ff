package wizard

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/store"
	"assetdb-api/pkg/importer"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Wizard, *importer.Engine) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	m := store.NewMemory()
	e := importer.NewEngine(m, logger)
	ctx := context.Background()

	_, err := e.ImportCSV(ctx, importer.Clients, strings.NewReader("code,name\nALCOA,Alcoa\nBHP,BHP\n"), false)
	require.NoError(t, err)
	res, err := e.ImportCSV(ctx, importer.Locations, strings.NewReader("client_code,kind,code,name,parent_code\n"+
		"ALCOA,site,WG-OC7,Wagerup,\n"+
		"ALCOA,area,PR1,Pump Room,WG-OC7\n"+
		"BHP,site,MAIN,BHP Main,\n"+
		"ALCOA,site,MAIN,Alcoa Main,\n"), false)
	require.NoError(t, err)
	require.Equal(t, 0, res.Summary.Errors, res.Rows)

	return New(m, nil, logger), e
}

func TestResolveColumns(t *testing.T) {
	cols := resolveColumns([]string{"Asset Tag", "Asset Name", "Location", "Serial Number", "Model No."},
		DefaultAliases().Assets, assetFields)
	assert.Equal(t, map[string]string{
		"tag":           "Asset Tag",
		"name":          "Asset Name",
		"location_code": "Location",
		"serial":        "Serial Number",
		"model":         "Model No.",
	}, cols)
}

func TestLocationsInfersKind(t *testing.T) {
	w, e := setup(t)
	src := "Customer,Location Name,Location Code,Parent\n" +
		"bhp,North Pit,NP,\n" +
		"BHP,Workshop,WS1,NP\n" +
		",No Client,NC,\n" +
		"BHP,,NONAME,\n"

	res, err := w.Locations(context.Background(), strings.NewReader(src), LocationsOptions{})
	require.NoError(t, err)
	assert.Equal(t, Summary{OK: 2, Bad: 2, Total: 4}, res.Summary)
	assert.Equal(t, "client_code missing (map a client column or pass client_code)", res.Rows[2].Message)
	assert.Equal(t, "name missing", res.Rows[3].Message)

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))
	assert.Equal(t, "client_code,kind(site|area),code,name,parent_code(optional)\n"+
		"BHP,site,NP,North Pit,\n"+
		"BHP,area,WS1,Workshop,NP\n", buf.String())

	// the canonical output imports as is
	imp, err := e.ImportCSV(context.Background(), importer.Locations, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, importer.Summary{Inserted: 2, Total: 2}, imp.Summary)
}

func TestLocationsClientOverride(t *testing.T) {
	w, _ := setup(t)
	src := "client,name,code,type\nOTHER,Site A,SA,site\n,Area B,AB,area\n"

	res, err := w.Locations(context.Background(), strings.NewReader(src), LocationsOptions{ClientCode: "alcoa"})
	require.NoError(t, err)
	assert.Equal(t, "ALCOA", res.Records()[0]["client_code"])
	assert.Equal(t, Summary{OK: 1, Bad: 1, Total: 2}, res.Summary)
	assert.Equal(t, "area rows need a parent_code", res.Rows[1].Message)
}

func TestAssetsSkipsUnknownLocations(t *testing.T) {
	w, _ := setup(t)
	src := "Company,Asset Name,Asset Tag,Location,Status\n" +
		"Whoever,Pump,P-1,PR1,Ready\n" +
		"Whoever,Motor,M-1,NOWHERE,\n" +
		"Whoever,,X-1,PR1,\n" +
		"Whoever,Fan,F-1,MAIN,retired\n"

	res, err := w.Assets(context.Background(), strings.NewReader(src), AssetsOptions{UseKnownLocations: true})
	require.NoError(t, err)
	assert.Equal(t, Summary{OK: 1, Skipped: 1, Bad: 2, Total: 4}, res.Summary)

	assert.Equal(t, ActionMapped, res.Rows[0].Action)
	assert.Equal(t, ActionSkipped, res.Rows[1].Action)
	assert.Equal(t, "location not in database: NOWHERE", res.Rows[1].Message)
	assert.Equal(t, "name missing", res.Rows[2].Message)
	assert.Equal(t, "ambiguous location_code (exists under multiple clients): MAIN", res.Rows[3].Message)

	rec := res.Records()[0]
	assert.Equal(t, "", rec["client_code"])
	assert.Equal(t, "active", rec["status"])
}

func TestAssetsWithOutputClient(t *testing.T) {
	w, e := setup(t)
	src := "Asset Name,Location,Serial\nFan,MAIN,SN-9\nPump,WG-OC7,SN-1\n"

	res, err := w.Assets(context.Background(), strings.NewReader(src), AssetsOptions{ClientCode: "bhp", UseKnownLocations: true})
	require.NoError(t, err)
	assert.Equal(t, Summary{OK: 1, Skipped: 1, Total: 2}, res.Summary)
	assert.Equal(t, "location not in database for client: WG-OC7", res.Rows[1].Message)

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))
	imp, err := e.ImportCSV(context.Background(), importer.Assets, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, importer.Summary{Inserted: 1, Total: 1}, imp.Summary)

	_, err = w.Assets(context.Background(), strings.NewReader(src), AssetsOptions{ClientCode: "NOPE", UseKnownLocations: true})
	assert.Equal(t, apperr.KindReferenceNotFound, apperr.KindOf(err))
}

func TestAssetsWithoutKnownLocations(t *testing.T) {
	w, _ := setup(t)
	res, err := w.Assets(context.Background(), strings.NewReader("name,location\nPump,ANYWHERE\n"), AssetsOptions{})
	require.NoError(t, err)
	assert.Equal(t, Summary{OK: 1, Total: 1}, res.Summary)
}

func TestLoadAliasesOverridesField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets:\n  tag: [plant_no]\n"), 0o600))

	table, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"plant_no"}, table.Assets["tag"])
	assert.Equal(t, DefaultAliases().Assets["name"], table.Assets["name"])

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
