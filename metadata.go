package harvest

import (
	"fmt"
	"strconv"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// MetadataAttribute is one trait in the NFT metadata document.
type MetadataAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// MetadataDocument is the JSON document the mint collaborator dereferences
// for a report NFT.
type MetadataDocument struct {
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	Description string              `json:"description"`
	Image       string              `json:"image,omitempty"`
	Attributes  []MetadataAttribute `json:"attributes"`
}

const metadataSymbol = "HARVEST"

// BuildMetadata renders the metadata document for a report.
func BuildMetadata(report *types.Report) *MetadataDocument {
	quantity := strconv.FormatFloat(report.Quantity.Value, 'f', -1, 64) + " " + report.Quantity.Unit
	description := fmt.Sprintf("%s of %s harvested", quantity, report.CropType)
	if region := report.Region(); region != "" {
		description += " in " + region
	}

	doc := &MetadataDocument{
		Name:        "Harvest Report " + report.ShortID,
		Symbol:      metadataSymbol,
		Description: description,
		Attributes: []MetadataAttribute{
			{TraitType: "Crop Type", Value: report.CropType},
			{TraitType: "Quantity", Value: quantity},
			{TraitType: "Region", Value: report.Region()},
			{TraitType: "Status", Value: string(report.Status)},
		},
	}
	if len(report.Images) > 0 {
		doc.Image = report.Images[0].URL
	}
	if report.Metadata.HarvestDate != nil {
		doc.Attributes = append(doc.Attributes, MetadataAttribute{
			TraitType: "Harvest Date",
			Value:     report.Metadata.HarvestDate.Format("2006-01-02"),
		})
	}
	return doc
}
