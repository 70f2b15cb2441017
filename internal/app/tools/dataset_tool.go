package tools

import (
	"context"
	"fmt"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// Tool operation names, also used as the "tool" field of tool_call events.
const (
	OpSearchDatasets = "search_datasets"
	OpVerifyDataset  = "verify_dataset"
)

// DatasetTool exposes the dataset catalog to agents through the generic Tool
// interface. One tool, two operations, selected by the "op" input key.
type DatasetTool struct {
	catalog domain.DatasetCatalog
}

// NewDatasetTool creates a DatasetTool.
// catalog can be the static in-process catalog or any remote implementation.
func NewDatasetTool(catalog domain.DatasetCatalog) *DatasetTool {
	return &DatasetTool{catalog: catalog}
}

func (t *DatasetTool) Name() string {
	return "dataset_catalog"
}

// Call expects an input with one of these shapes:
//
//	{"op": "search_datasets", "keywords": "flood sar bangladesh"}
//	{"op": "verify_dataset", "dataset_id": "COPERNICUS/S1_GRD"}
func (t *DatasetTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {

	op := getString(input, "op")
	switch op {
	case OpSearchDatasets:
		return t.search(ctx, getString(input, "keywords"))
	case OpVerifyDataset:
		return t.verify(ctx, getString(input, "dataset_id"))
	default:
		return nil, fmt.Errorf("dataset_catalog: unknown op %q", op)
	}
}

func (t *DatasetTool) search(ctx context.Context, keywords string) (map[string]any, error) {
	if keywords == "" {
		return nil, fmt.Errorf("dataset_catalog: keywords are required for %s", OpSearchDatasets)
	}

	datasets, err := t.catalog.SearchDatasets(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("dataset_catalog: search failed: %w", err)
	}

	items := make([]map[string]any, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, map[string]any{
			"id":   d.ID,
			"name": d.Name,
			"kind": d.Kind,
		})
	}

	return map[string]any{
		"datasets": items,
		"count":    len(items),
	}, nil
}

func (t *DatasetTool) verify(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, fmt.Errorf("dataset_catalog: dataset_id is required for %s", OpVerifyDataset)
	}

	info, err := t.catalog.VerifyDataset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dataset_catalog: verify failed: %w", err)
	}

	bands := make([]map[string]any, 0, len(info.Bands))
	for _, b := range info.Bands {
		bands = append(bands, map[string]any{
			"name":      b.Name,
			"data_type": b.DataType,
		})
	}

	return map[string]any{
		"dataset_id": id,
		"exists":     info.Exists,
		"bands":      bands,
		"docs_url":   info.DocsURL,
	}, nil
}

// --- internal helpers --- //

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
