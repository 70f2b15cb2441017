package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// MockGateway is a deterministic, offline stand-in for the Gemini gateway.
// It looks at the request's capability flags and prompt keywords to produce
// role-appropriate output, so the full pipeline can run in local dev and in
// end-to-end tests without credentials.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

var datasetIDPattern = regexp.MustCompile(`[A-Z][A-Z0-9_-]*(?:/[A-Za-z0-9_.-]+)+`)

func (m *MockGateway) GenerateStream(
	ctx context.Context,
	req domain.GenerateRequest,
) (<-chan domain.Fragment, <-chan error, error) {

	frags := make(chan domain.Fragment)
	errc := make(chan error, 1)

	go func() {
		defer close(frags)
		defer close(errc)

		send := func(f domain.Fragment) bool {
			select {
			case frags <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		switch {
		case req.EnableSearch:
			m.streamResearch(req, send)
		case req.IncludeThoughts:
			m.streamCode(req, send)
		default:
			m.streamNarrative(req, send)
		}

		select {
		case errc <- nil:
		case <-ctx.Done():
		}
	}()

	return frags, errc, nil
}

// streamResearch mimics a grounded research run: a search query, a couple of
// sources and a structured report mentioning concrete dataset IDs.
func (m *MockGateway) streamResearch(req domain.GenerateRequest, send func(domain.Fragment) bool) {
	topic := "geospatial analysis"
	dataset := "COPERNICUS/S2_SR_HARMONIZED"
	prompt := strings.ToLower(req.Prompt)
	switch {
	case strings.Contains(prompt, "flood") || strings.Contains(prompt, "radar") || strings.Contains(prompt, "sar"):
		topic = "SAR flood mapping"
		dataset = "COPERNICUS/S1_GRD"
	case strings.Contains(prompt, "fire"):
		topic = "active fire detection"
		dataset = "MODIS/061/MOD14A1"
	case strings.Contains(prompt, "deforestation") || strings.Contains(prompt, "forest"):
		topic = "forest change detection"
		dataset = "UMD/hansen/global_forest_change_2023_v1_11"
	case strings.Contains(prompt, "ndvi") || strings.Contains(prompt, "vegetation"):
		topic = "vegetation index time series"
		dataset = "MODIS/061/MOD13A1"
	}

	if !send(domain.Fragment{Kind: domain.FragmentSearchQuery, Query: topic + " methodology earth engine"}) {
		return
	}
	if !send(domain.Fragment{Kind: domain.FragmentSource, Source: &domain.Source{
		Title: "Earth Engine Data Catalog: " + dataset,
		URI:   "https://developers.google.com/earth-engine/datasets/catalog/" + strings.ReplaceAll(dataset, "/", "_"),
	}}) {
		return
	}
	if !send(domain.Fragment{Kind: domain.FragmentSource, Source: &domain.Source{
		Title: "A review of " + topic + " methods",
		URI:   "https://example.org/papers/" + strings.ReplaceAll(topic, " ", "-"),
	}}) {
		return
	}

	report := fmt.Sprintf(
		"Recommended methodology for %s.\n\n"+
			"Datasets:\n- %s\n\n"+
			"Preprocessing: filter by date and region, apply quality masking.\n"+
			"Analysis: thresholding with temporal compositing.\n",
		topic, dataset)
	send(domain.Fragment{Kind: domain.FragmentText, Text: report})
}

// streamCode mimics a thinking-mode coding run: thought fragments followed by
// a fenced script that references every dataset ID present in the prompt.
func (m *MockGateway) streamCode(req domain.GenerateRequest, send func(domain.Fragment) bool) {
	datasets := dedupeStrings(datasetIDPattern.FindAllString(req.Prompt, -1))
	if len(datasets) == 0 {
		datasets = []string{"COPERNICUS/S2_SR_HARMONIZED"}
	}

	thoughts := []string{
		"Checking the verified band schemas before writing any filters.",
		"Composing the collection filter chain for the requested window.",
		"Adding visualization parameters and a legend panel.",
	}
	for _, th := range thoughts {
		if !send(domain.Fragment{Kind: domain.FragmentThought, Text: th}) {
			return
		}
	}

	var b strings.Builder
	b.WriteString("```javascript\n")
	b.WriteString("// Generated analysis script\n")
	for i, id := range datasets {
		fmt.Fprintf(&b, "var col%d = ee.ImageCollection('%s');\n", i, id)
	}
	b.WriteString("var composite = col0.median();\n")
	b.WriteString("Map.addLayer(composite, {min: 0, max: 3000}, 'analysis');\n")
	b.WriteString("```\n")

	// Deliver the body in two chunks to exercise delta accumulation.
	text := b.String()
	half := len(text) / 2
	if !send(domain.Fragment{Kind: domain.FragmentText, Text: text[:half]}) {
		return
	}
	send(domain.Fragment{Kind: domain.FragmentText, Text: text[half:]})
}

// streamNarrative covers the plain-generation roles (planner, synthesizer,
// chat).
func (m *MockGateway) streamNarrative(req domain.GenerateRequest, send func(domain.Fragment) bool) {
	system := strings.ToLower(req.System)
	switch {
	case strings.Contains(system, "task planning"):
		send(domain.Fragment{Kind: domain.FragmentText, Text: "Plan:\n" +
			"1. Research methodology and candidate datasets.\n" +
			"2. Verify dataset schemas.\n" +
			"3. Generate the analysis script.\n" +
			"4. Synthesize a cited methodology report.\n"})
	case strings.Contains(system, "conversational agent") && strings.Contains(req.Prompt, "Refine the script"):
		m.streamRefinement(req, send)
	case strings.Contains(system, "research synthesizer"):
		send(domain.Fragment{Kind: domain.FragmentText, Text: "## 1. Overview\n" +
			"This analysis addresses the requested objective [1].\n\n" +
			"## 2. Data Sources\nSee dataset list above [1].\n\n" +
			"## 3. Methodology\nPreprocess, composite, threshold [2].\n\n" +
			"## 4. Expected Outputs\nA classified map layer with legend.\n\n" +
			"## 5. References\n[1] Earth Engine Data Catalog\n[2] Methods review\n"})
	default:
		send(domain.Fragment{Kind: domain.FragmentText,
			Text: "Here is what I can tell you based on the current session context: " +
				firstLine(req.Prompt)})
	}
}

// streamRefinement echoes back the session's current script with one extra
// line, the way a real refinement turn returns the full updated script.
func (m *MockGateway) streamRefinement(req domain.GenerateRequest, send func(domain.Fragment) bool) {
	script := "// no script in session"
	if match := refinementScriptPattern.FindStringSubmatch(req.Prompt); match != nil {
		script = strings.TrimSpace(match[1])
	}
	send(domain.Fragment{Kind: domain.FragmentText, Text: "```javascript\n" +
		script + "\n// refined per user request\n```\n" +
		"I updated the script as requested."})
}

var refinementScriptPattern = regexp.MustCompile("(?s)Current script:\n```javascript\n(.*?)```")

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
