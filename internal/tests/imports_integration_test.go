//go:build integration

package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"assetdb-api/internal/handlers"
	"assetdb-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importCSV(t *testing.T, token, path, body string) handlers.ImportResponse {
	t.Helper()
	w := request(t, "POST", path, token, strings.NewReader(body), "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp handlers.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestImportsIntegration(t *testing.T) {
	testutil.RequireIntegration(t)
	token := login(t)

	csv := "code,name,city\nBHP,BHP Billiton,Perth\nRIO,Rio Tinto,\n,Missing code,\n"

	t.Run("DryRunWritesNothing", func(t *testing.T) {
		resp := importCSV(t, token, "/imports/clients?dry_run=1", csv)
		assert.True(t, resp.OK)
		assert.Equal(t, 3, resp.Summary.Total)
		assert.Equal(t, 1, resp.Summary.Errors)

		_, err := testStore.GetClientByCode(context.Background(), "BHP")
		assert.Error(t, err)
	})

	t.Run("CommitInsertsThenUpdates", func(t *testing.T) {
		resp := importCSV(t, token, "/imports/clients", csv)
		assert.Equal(t, 2, resp.Summary.Inserted)
		assert.Equal(t, 1, resp.Summary.Errors)

		c, err := testStore.GetClientByCode(context.Background(), "BHP")
		require.NoError(t, err)
		assert.Equal(t, "Perth", c.City)

		resp = importCSV(t, token, "/imports/clients", "code,name,city\nbhp,BHP Group,Melbourne\n")
		assert.Equal(t, 1, resp.Summary.Updated)
		c, err = testStore.GetClientByCode(context.Background(), "BHP")
		require.NoError(t, err)
		assert.Equal(t, "BHP Group", c.Name)
		assert.Equal(t, "Melbourne", c.City)
	})

	t.Run("LocationsAndExport", func(t *testing.T) {
		resp := importCSV(t, token, "/imports/locations",
			"client_code,kind,code,name,parent_code\nBHP,site,PERTH,Perth Office,\nBHP,area,L2,Level 2,PERTH\n")
		require.Equal(t, 0, resp.Summary.Errors, resp.Rows)
		assert.Equal(t, 2, resp.Summary.Inserted)

		w := request(t, "GET", "/imports/locations/export", token, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "BHP,area,L2,Level 2,PERTH")
	})
}
