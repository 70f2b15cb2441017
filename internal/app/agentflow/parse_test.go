package agentflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFencedCode(t *testing.T) {
	text := "Here is the script:\n```javascript\nvar x = ee.Image(1);\n```\nDone."
	code, ok := extractFencedCode(text)
	assert.True(t, ok)
	assert.Equal(t, "var x = ee.Image(1);", code)
}

func TestExtractFencedCodeBareFence(t *testing.T) {
	code, ok := extractFencedCode("```\nvar y = 2;\n```")
	assert.True(t, ok)
	assert.Equal(t, "var y = 2;", code)
}

func TestCleanCodeWithoutFences(t *testing.T) {
	assert.Equal(t, "var z = 3;", cleanCode("  var z = 3;\n"))
}

func TestCleanCodePrefersFencedBlock(t *testing.T) {
	text := "Sure, here you go:\n```js\nvar a = 1;\n```"
	assert.Equal(t, "var a = 1;", cleanCode(text))
}

func TestExtractDatasetIDs(t *testing.T) {
	text := "Use COPERNICUS/S1_GRD and JRC/GSW1_4/GlobalSurfaceWater. " +
		"COPERNICUS/S1_GRD appears twice."
	assert.Equal(t,
		[]string{"COPERNICUS/S1_GRD", "JRC/GSW1_4/GlobalSurfaceWater"},
		extractDatasetIDs(text))
}

func TestExtractDatasetIDsIgnoresProse(t *testing.T) {
	assert.Empty(t, extractDatasetIDs("no dataset ids in this sentence"))
}

func TestMergeDatasetsKeepsFirstAppearanceOrder(t *testing.T) {
	merged := mergeDatasets(
		[]string{"A1/B", "C2/D"},
		[]string{"C2/D", "E3/F"},
		nil,
		[]string{"A1/B"},
	)
	assert.Equal(t, []string{"A1/B", "C2/D", "E3/F"}, merged)
}
