package agentflow

import (
	"regexp"
	"strings"
)

var (
	fencedCodePattern = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\\n(.*?)```")

	// Earth Engine dataset IDs: slash-separated paths whose first segment is
	// an uppercase provider code, e.g. COPERNICUS/S1_GRD or
	// UMD/hansen/global_forest_change_2023_v1_11.
	datasetIDPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_-]{2,}(?:/[A-Za-z0-9_.-]+)+`)
)

// extractFencedCode returns the body of the first fenced code block, if any.
func extractFencedCode(text string) (string, bool) {
	m := fencedCodePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// cleanCode normalizes a model reply that is supposed to be a bare script.
// Models wrap code in markdown fences despite instructions, so a fenced block
// wins; otherwise the whole reply, trimmed, is taken as the script.
func cleanCode(text string) string {
	if code, ok := extractFencedCode(text); ok {
		return code
	}
	return strings.TrimSpace(text)
}

// extractDatasetIDs pulls dataset IDs out of free text, first appearance
// order, deduplicated.
func extractDatasetIDs(text string) []string {
	return dedupe(datasetIDPattern.FindAllString(text, -1))
}

// mergeDatasets combines per-stage dataset lists preserving first-appearance
// order across the whole pipeline.
func mergeDatasets(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return dedupe(all)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
