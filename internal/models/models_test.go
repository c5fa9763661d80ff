package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBOMLineVariants(t *testing.T) {
	var bom BOM
	require.NoError(t, json.Unmarshal([]byte(`[
		{"part_id": 7, "qty": 2},
		{"part_name": "Gearbox seal", "part_no": "GS-1", "qty": "1.5", "unit": "m"}
	]`), &bom))
	require.Len(t, bom, 2)

	id, ok := bom[0].PartID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, DefaultUnit, bom[0].Unit)

	ft, ok := bom[1].Item.(FreeText)
	require.True(t, ok)
	assert.Equal(t, "Gearbox seal", ft.Name)
	assert.True(t, decimal.RequireFromString("1.5").Equal(bom[1].Qty))

	assert.Equal(t, []int64{7}, bom.PartIDs())
	assert.NoError(t, bom.Validate())

	out, err := json.Marshal(bom[1])
	require.NoError(t, err)
	assert.NotContains(t, string(out), "part_id")
}

func TestBOMLineValidate(t *testing.T) {
	assert.Error(t, BOMLine{}.Validate())
	assert.Error(t, BOMLine{Item: FreeText{}}.Validate())
	assert.Error(t, BOMLine{Item: PartRef{PartID: 1}, Qty: decimal.NewFromInt(-1)}.Validate())
	assert.NoError(t, BOMLine{Item: FreeText{Number: "X1"}}.Validate())
}

func TestAssetMainPhoto(t *testing.T) {
	a := Asset{Attachments: Attachments{{Filename: "a.jpg"}, {Filename: "b.pdf"}}}

	assert.ErrorIs(t, a.SetMainPhoto("missing.jpg"), ErrAttachmentNotFound)
	require.NoError(t, a.SetMainPhoto("a.jpg"))
	assert.Equal(t, "a.jpg", a.MainPhoto)

	assert.True(t, a.RemoveAttachment("b.pdf"))
	assert.Equal(t, "a.jpg", a.MainPhoto)

	assert.True(t, a.RemoveAttachment("a.jpg"))
	assert.Empty(t, a.MainPhoto)
	assert.Empty(t, a.Attachments)
	assert.False(t, a.RemoveAttachment("a.jpg"))
}

func TestPartLinkSupplier(t *testing.T) {
	p := Part{}
	assert.False(t, p.LinkSupplier(SupplierOption{SupplierID: 1, SupplierSKU: "A"}))
	assert.Equal(t, DefaultCurrency, p.SupplierOptions[0].Currency)
	assert.Equal(t, DefaultMOQ, p.SupplierOptions[0].MOQ)

	assert.True(t, p.LinkSupplier(SupplierOption{SupplierID: 1, SupplierSKU: "B", Currency: "AUD", MOQ: 5}))
	require.Len(t, p.SupplierOptions, 1)
	assert.Equal(t, "B", p.SupplierOptions[0].SupplierSKU)

	p.LinkSupplier(SupplierOption{SupplierID: 2})
	assert.True(t, p.SuppliedBy(2))
	assert.True(t, p.UnlinkSupplier(1))
	assert.False(t, p.SuppliedBy(1))
	assert.False(t, p.UnlinkSupplier(1))
}

func TestParseEnums(t *testing.T) {
	assert.Equal(t, JobPlanned, ParseJobStatus(" Planned "))
	assert.Equal(t, JobInvestigateQuote, ParseJobStatus("bogus"))
	assert.Len(t, JobStatuses(), 9)
	assert.Equal(t, JobInvoice, JobStatuses()[8])

	assert.Equal(t, AssetSpare, ParseAssetStatus("SPARE"))
	assert.Equal(t, AssetActive, ParseAssetStatus(""))

	k, ok := ParseLocationKind("Area")
	assert.True(t, ok)
	assert.Equal(t, LocationArea, k)
	_, ok = ParseLocationKind("room")
	assert.False(t, ok)

	assert.Equal(t, JobAttachmentOther, ParseJobAttachmentKind("invoice"))
}

func TestLocationPathHelpers(t *testing.T) {
	site := Location{ID: 3}
	area := Location{ID: 9, Path: site.ChildPath()}
	assert.Equal(t, []int64{3}, area.Path)
	assert.True(t, area.HasAncestor(3))
	assert.False(t, site.HasAncestor(9))
	assert.Equal(t, []int64{3, 9}, area.ChildPath())
}
