// Package catalog implements the dataset catalog the agents consult for
// Earth Engine dataset discovery and band-schema verification.
package catalog

import (
	"context"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// Static is an in-process catalog backed by a curated keyword table and band
// schemas for the most common public collections. It answers synchronously,
// which is what the Coder needs mid-generation.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

const docsBaseURL = "https://developers.google.com/earth-engine/datasets/catalog/"

// keyword -> candidate datasets, in recommendation order.
var datasetKeywords = map[string][]domain.Dataset{
	"landsat": {
		{ID: "LANDSAT/LC09/C02/T1_L2", Name: "Landsat 9 Level 2", Kind: "optical"},
		{ID: "LANDSAT/LC08/C02/T1_L2", Name: "Landsat 8 Level 2", Kind: "optical"},
	},
	"sentinel": {
		{ID: "COPERNICUS/S2_SR_HARMONIZED", Name: "Sentinel-2 Surface Reflectance", Kind: "optical"},
		{ID: "COPERNICUS/S1_GRD", Name: "Sentinel-1 SAR GRD", Kind: "sar"},
	},
	"modis": {
		{ID: "MODIS/061/MOD13A1", Name: "MODIS Vegetation Indices", Kind: "vegetation"},
		{ID: "MODIS/061/MCD12Q1", Name: "MODIS Land Cover", Kind: "landcover"},
	},
	"climate": {
		{ID: "ECMWF/ERA5_LAND/DAILY_AGGR", Name: "ERA5-Land Daily", Kind: "climate"},
		{ID: "UCSB-CHG/CHIRPS/DAILY", Name: "CHIRPS Precipitation", Kind: "precipitation"},
	},
	"precipitation": {
		{ID: "UCSB-CHG/CHIRPS/DAILY", Name: "CHIRPS Precipitation", Kind: "precipitation"},
	},
	"elevation": {
		{ID: "USGS/SRTMGL1_003", Name: "SRTM Digital Elevation", Kind: "elevation"},
		{ID: "JAXA/ALOS/AW3D30/V3_2", Name: "ALOS World 3D", Kind: "elevation"},
	},
	"ndvi": {
		{ID: "MODIS/061/MOD13A1", Name: "MODIS NDVI/EVI", Kind: "vegetation"},
		{ID: "LANDSAT/LC09/C02/T1_L2", Name: "Landsat 9 (compute NDVI)", Kind: "optical"},
	},
	"vegetation": {
		{ID: "MODIS/061/MOD13A1", Name: "MODIS NDVI/EVI", Kind: "vegetation"},
	},
	"sar": {
		{ID: "COPERNICUS/S1_GRD", Name: "Sentinel-1 SAR", Kind: "sar"},
	},
	"radar": {
		{ID: "COPERNICUS/S1_GRD", Name: "Sentinel-1 SAR", Kind: "sar"},
	},
	"flood": {
		{ID: "COPERNICUS/S1_GRD", Name: "Sentinel-1 SAR (flood detection)", Kind: "sar"},
		{ID: "JRC/GSW1_4/GlobalSurfaceWater", Name: "Global Surface Water", Kind: "water"},
	},
	"water": {
		{ID: "JRC/GSW1_4/GlobalSurfaceWater", Name: "Global Surface Water", Kind: "water"},
	},
	"fire": {
		{ID: "MODIS/061/MOD14A1", Name: "MODIS Thermal Anomalies/Fire", Kind: "fire"},
		{ID: "FIRMS", Name: "FIRMS Active Fires", Kind: "fire"},
	},
	"deforestation": {
		{ID: "UMD/hansen/global_forest_change_2023_v1_11", Name: "Hansen Global Forest Change", Kind: "forest"},
		{ID: "LANDSAT/LC09/C02/T1_L2", Name: "Landsat 9 (forest analysis)", Kind: "optical"},
	},
	"forest": {
		{ID: "UMD/hansen/global_forest_change_2023_v1_11", Name: "Hansen Global Forest Change", Kind: "forest"},
	},
	"urban": {
		{ID: "JRC/GHSL/P2023A/GHS_BUILT_S", Name: "GHSL Built-up Surface", Kind: "builtup"},
	},
	"no2": {
		{ID: "COPERNICUS/S5P/OFFL/L3_NO2", Name: "Sentinel-5P NO2", Kind: "atmosphere"},
	},
}

// keywordOrder fixes the match order; map iteration would make results
// nondeterministic across runs.
var keywordOrder = []string{
	"flood", "fire", "deforestation", "forest", "water", "radar", "sar",
	"ndvi", "vegetation", "sentinel", "landsat", "modis", "climate",
	"precipitation", "elevation", "urban", "no2",
}

// defaultDataset is returned when no keyword matches, so the Coder always
// has something concrete to verify.
var defaultDataset = domain.Dataset{
	ID:   "COPERNICUS/S2_SR_HARMONIZED",
	Name: "Sentinel-2 (default)",
	Kind: "optical",
}

var bandSchemas = map[string][]domain.Band{
	"COPERNICUS/S1_GRD": {
		{Name: "HH", DataType: "float"},
		{Name: "HV", DataType: "float"},
		{Name: "VV", DataType: "float"},
		{Name: "VH", DataType: "float"},
		{Name: "angle", DataType: "float"},
	},
	"COPERNICUS/S2_SR_HARMONIZED": {
		{Name: "B2", DataType: "int"},
		{Name: "B3", DataType: "int"},
		{Name: "B4", DataType: "int"},
		{Name: "B8", DataType: "int"},
		{Name: "B11", DataType: "int"},
		{Name: "B12", DataType: "int"},
		{Name: "SCL", DataType: "int"},
		{Name: "QA60", DataType: "int"},
	},
	"LANDSAT/LC09/C02/T1_L2": {
		{Name: "SR_B2", DataType: "int"},
		{Name: "SR_B3", DataType: "int"},
		{Name: "SR_B4", DataType: "int"},
		{Name: "SR_B5", DataType: "int"},
		{Name: "SR_B6", DataType: "int"},
		{Name: "SR_B7", DataType: "int"},
		{Name: "QA_PIXEL", DataType: "int"},
	},
	"LANDSAT/LC08/C02/T1_L2": {
		{Name: "SR_B2", DataType: "int"},
		{Name: "SR_B3", DataType: "int"},
		{Name: "SR_B4", DataType: "int"},
		{Name: "SR_B5", DataType: "int"},
		{Name: "QA_PIXEL", DataType: "int"},
	},
	"MODIS/061/MOD13A1": {
		{Name: "NDVI", DataType: "int"},
		{Name: "EVI", DataType: "int"},
		{Name: "SummaryQA", DataType: "int"},
	},
	"MODIS/061/MOD14A1": {
		{Name: "FireMask", DataType: "int"},
		{Name: "MaxFRP", DataType: "float"},
	},
	"JRC/GSW1_4/GlobalSurfaceWater": {
		{Name: "occurrence", DataType: "int"},
		{Name: "seasonality", DataType: "int"},
		{Name: "transition", DataType: "int"},
	},
	"USGS/SRTMGL1_003": {
		{Name: "elevation", DataType: "int"},
	},
	"UMD/hansen/global_forest_change_2023_v1_11": {
		{Name: "treecover2000", DataType: "int"},
		{Name: "loss", DataType: "int"},
		{Name: "lossyear", DataType: "int"},
		{Name: "gain", DataType: "int"},
	},
	"UCSB-CHG/CHIRPS/DAILY": {
		{Name: "precipitation", DataType: "float"},
	},
	"ECMWF/ERA5_LAND/DAILY_AGGR": {
		{Name: "temperature_2m", DataType: "float"},
		{Name: "total_precipitation_sum", DataType: "float"},
	},
}

// SearchDatasets returns candidate datasets for the given keywords, in order
// of first keyword match, duplicates removed.
func (c *Static) SearchDatasets(_ context.Context, keywords string) ([]domain.Dataset, error) {
	query := strings.ToLower(keywords)

	var out []domain.Dataset
	seen := make(map[string]bool)
	for _, keyword := range keywordOrder {
		if !strings.Contains(query, keyword) {
			continue
		}
		for _, d := range datasetKeywords[keyword] {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}

	if len(out) == 0 {
		out = append(out, defaultDataset)
	}
	return out, nil
}

// VerifyDataset reports whether the catalog knows the dataset and, if so,
// its band schema and documentation URL.
func (c *Static) VerifyDataset(_ context.Context, id string) (*domain.DatasetInfo, error) {
	bands, ok := bandSchemas[id]
	if !ok {
		// Known as a candidate but without a curated schema: existence can
		// still be confirmed from the keyword table.
		if knownDataset(id) {
			return &domain.DatasetInfo{Exists: true, DocsURL: docsURL(id)}, nil
		}
		return &domain.DatasetInfo{Exists: false}, nil
	}
	return &domain.DatasetInfo{
		Exists:  true,
		Bands:   bands,
		DocsURL: docsURL(id),
	}, nil
}

func knownDataset(id string) bool {
	for _, datasets := range datasetKeywords {
		for _, d := range datasets {
			if d.ID == id {
				return true
			}
		}
	}
	return false
}

func docsURL(id string) string {
	return docsBaseURL + strings.ReplaceAll(id, "/", "_")
}
