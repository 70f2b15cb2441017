package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomind-labs/geomind-agent/internal/adapters/catalog"
)

func TestSearchDatasetsFloodSurfacesSAR(t *testing.T) {
	c := catalog.NewStatic()

	datasets, err := c.SearchDatasets(context.Background(), "Detect floods in Bangladesh using radar")
	require.NoError(t, err)
	require.NotEmpty(t, datasets)

	assert.Equal(t, "COPERNICUS/S1_GRD", datasets[0].ID)
	assert.Equal(t, "sar", datasets[0].Kind)
}

func TestSearchDatasetsDeduplicatesAcrossKeywords(t *testing.T) {
	c := catalog.NewStatic()

	// "flood" and "radar" both map to Sentinel-1; it must appear once.
	datasets, err := c.SearchDatasets(context.Background(), "flood radar")
	require.NoError(t, err)

	count := 0
	for _, d := range datasets {
		if d.ID == "COPERNICUS/S1_GRD" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSearchDatasetsFallsBackToDefault(t *testing.T) {
	c := catalog.NewStatic()

	datasets, err := c.SearchDatasets(context.Background(), "something entirely unrelated")
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "COPERNICUS/S2_SR_HARMONIZED", datasets[0].ID)
}

func TestVerifyDataset(t *testing.T) {
	c := catalog.NewStatic()
	ctx := context.Background()

	info, err := c.VerifyDataset(ctx, "COPERNICUS/S1_GRD")
	require.NoError(t, err)
	require.True(t, info.Exists)
	assert.NotEmpty(t, info.Bands)
	assert.Contains(t, info.DocsURL, "COPERNICUS_S1_GRD")

	bandNames := make([]string, 0, len(info.Bands))
	for _, b := range info.Bands {
		bandNames = append(bandNames, b.Name)
	}
	assert.Contains(t, bandNames, "VV")

	missing, err := c.VerifyDataset(ctx, "NOPE/DOES_NOT_EXIST")
	require.NoError(t, err)
	assert.False(t, missing.Exists)
}
