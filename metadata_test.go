package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lingaraj-Patil/farm-yield/test_helpers"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

func TestBuildMetadata(t *testing.T) {
	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	harvested := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	report.Metadata.HarvestDate = &harvested

	doc := BuildMetadata(report)
	require.Equal(t, "Harvest Report "+report.ShortID, doc.Name)
	require.Equal(t, metadataSymbol, doc.Symbol)
	require.Contains(t, doc.Description, "500 kg of rice")
	require.Contains(t, doc.Description, "Thane, Maharashtra")
	require.Equal(t, report.Images[0].URL, doc.Image)

	attrs := map[string]string{}
	for _, attr := range doc.Attributes {
		attrs[attr.TraitType] = attr.Value
	}
	require.Equal(t, "rice", attrs["Crop Type"])
	require.Equal(t, "500 kg", attrs["Quantity"])
	require.Equal(t, "Thane, Maharashtra", attrs["Region"])
	require.Equal(t, "pending", attrs["Status"])
	require.Equal(t, "2026-03-14", attrs["Harvest Date"])
}

func TestBuildMetadataSparseReport(t *testing.T) {
	report := &types.Report{
		ShortID:  "RPT-ABCD1234",
		CropType: "maize",
		Quantity: types.Quantity{Value: 12.5, Unit: "kg"},
		Status:   types.StatusVerified,
	}
	doc := BuildMetadata(report)
	require.Equal(t, "12.5 kg of maize harvested", doc.Description)
	require.Empty(t, doc.Image)

	for _, attr := range doc.Attributes {
		require.NotEqual(t, "Harvest Date", attr.TraitType)
	}
}
