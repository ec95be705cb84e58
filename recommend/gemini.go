package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiRecommender struct {
	client *genai.Client
	model  string
}

func NewGeminiRecommender(ctx context.Context, apiKey, model string) (*GeminiRecommender, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiRecommender{client: client, model: model}, nil
}

func (g *GeminiRecommender) Close() error {
	return g.client.Close()
}

func (g *GeminiRecommender) Suggest(ctx context.Context, req Request) ([]string, error) {
	resp, err := g.client.GenerativeModel(g.model).GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
				sb.WriteString("\n")
			}
		}
	}
	return ParseSuggestions(sb.String(), req.Limit), nil
}

func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("A student at a campus canteen has ordered these items before:\n")
	for _, h := range req.History {
		fmt.Fprintf(&sb, "- %s (%d times): %s\n", h.Name, h.TotalQuantity, h.Description)
	}
	sb.WriteString("\nThe menu also offers:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&sb, "- %s: %s\n", c.Name, c.Description)
	}
	fmt.Fprintf(&sb, "\nRecommend up to %d items from the second list they would likely enjoy. "+
		"Reply with one exact item name per line and nothing else.\n", req.Limit)
	return sb.String()
}

// ParseSuggestions turns a model reply into item names, one per non-empty
// line with list markers stripped.
func ParseSuggestions(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		name = strings.TrimSpace(strings.TrimLeft(name, "-*•"))
		name = strings.Trim(name, "*")
		if name == "" {
			continue
		}
		out = append(out, name)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
