package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/geomind-labs/geomind-agent/internal/domain"
	"google.golang.org/genai"
)

// GeminiGateway implements domain.ModelGateway on top of the Gemini API
// (direct or through Vertex AI, depending on configuration).
type GeminiGateway struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

type GeminiConfig struct {
	// APIKey selects the Gemini API backend. Leave empty and set Project +
	// Location to go through Vertex AI instead.
	APIKey    string
	ProjectID string
	Location  string

	ModelName string

	// Timeout bounds a single generation, streaming included.
	Timeout time.Duration
}

// NewGeminiGateway creates a gateway against the configured backend.
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	var clientCfg *genai.ClientConfig

	switch {
	case cfg.APIKey != "":
		clientCfg = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	case cfg.ProjectID != "" && cfg.Location != "":
		clientCfg = &genai.ClientConfig{
			Project:  cfg.ProjectID,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	default:
		return nil, fmt.Errorf("gemini gateway needs an API key or a GCP project and location")
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	return &GeminiGateway{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

const thinkingBudgetTokens = 2048

// GenerateStream implements domain.ModelGateway. The fragment channel closes
// when the provider stream ends; the error channel then delivers the terminal
// error (nil on success).
func (g *GeminiGateway) GenerateStream(
	ctx context.Context,
	req domain.GenerateRequest,
) (<-chan domain.Fragment, <-chan error, error) {

	contents := buildContents(req)
	cfg := g.buildConfig(req)

	frags := make(chan domain.Fragment)
	errc := make(chan error, 1)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)

	go func() {
		defer close(frags)
		defer close(errc)
		defer cancel()

		var (
			seenQueries = make(map[string]bool)
			seenSources = make(map[string]bool)
			sawText     bool
		)

		for resp, err := range g.client.Models.GenerateContentStream(genCtx, g.modelName, contents, cfg) {
			if err != nil {
				errc <- fmt.Errorf("gemini generate stream: %w", err)
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			candidate := resp.Candidates[0]

			for _, part := range candidate.Content.Parts {
				switch {
				case part.Thought && part.Text != "":
					frags <- domain.Fragment{Kind: domain.FragmentThought, Text: part.Text}
				case part.Text != "":
					sawText = true
					frags <- domain.Fragment{Kind: domain.FragmentText, Text: part.Text}
				case part.FunctionCall != nil:
					frags <- domain.Fragment{
						Kind: domain.FragmentToolCall,
						Tool: &domain.ToolCall{
							Tool:        part.FunctionCall.Name,
							Description: fmt.Sprintf("%v", part.FunctionCall.Args),
						},
					}
				}
			}

			// Grounding metadata may repeat across chunks; surface each
			// query and source once.
			if gm := candidate.GroundingMetadata; gm != nil {
				for _, q := range gm.WebSearchQueries {
					if seenQueries[q] {
						continue
					}
					seenQueries[q] = true
					frags <- domain.Fragment{Kind: domain.FragmentSearchQuery, Query: q}
				}
				for _, chunk := range gm.GroundingChunks {
					if chunk.Web == nil || seenSources[chunk.Web.URI] {
						continue
					}
					seenSources[chunk.Web.URI] = true
					frags <- domain.Fragment{
						Kind:   domain.FragmentSource,
						Source: &domain.Source{Title: chunk.Web.Title, URI: chunk.Web.URI},
					}
				}
			}
		}

		if !sawText {
			errc <- fmt.Errorf("gemini returned empty text")
			return
		}
		errc <- nil
	}()

	return frags, errc, nil
}

func buildContents(req domain.GenerateRequest) []*genai.Content {
	var contents []*genai.Content
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Author == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
	return contents
}

func (g *GeminiGateway) buildConfig(req domain.GenerateRequest) *genai.GenerateContentConfig {
	temp := float32(0.7)
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	topP := float32(0.95)
	outputTokens := int32(8192)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: outputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.IncludeThoughts {
		budget := int32(thinkingBudgetTokens)
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  &budget,
		}
	}
	if req.EnableSearch {
		cfg.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}
	return cfg
}
