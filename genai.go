package slr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GenaiInvoker implements Invoker using Google GenAI (Gemini).
type GenaiInvoker struct {
	client *genai.Client
	log    *slog.Logger
}

// NewGenaiInvoker wraps client. A nil logger means slog.Default().
func NewGenaiInvoker(client *genai.Client, log *slog.Logger) *GenaiInvoker {
	if log == nil {
		log = slog.Default()
	}
	return &GenaiInvoker{client: client, log: log}
}

// Generate sends req and returns the concatenated text of the first candidate.
// API errors are returned unchanged so IsRateLimit can classify them.
func (gv *GenaiInvoker) Generate(ctx context.Context, req Request) (string, error) {
	if gv.client == nil {
		return "", ErrClientMissing
	}

	contents, config, err := buildContents(req)
	if err != nil {
		return "", err
	}

	gv.log.Debug("Generating content", "model", req.Model, "parts", len(req.Parts), "temperature", req.Temperature)

	resp, err := gv.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	gv.log.Debug("Generated content successfully", "response_length", len(text))
	return text, nil
}

// buildContents maps a Request onto the genai content and config types.
func buildContents(req Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if req.Model == "" {
		return nil, nil, fmt.Errorf("model not specified")
	}

	var parts []*genai.Part
	for _, part := range req.Parts {
		switch part.Type {
		case "text":
			parts = append(parts, genai.NewPartFromText(part.Text))
		case "blob":
			parts = append(parts, genai.NewPartFromBytes(part.Data, part.MimeType))
		default:
			return nil, nil, fmt.Errorf("unsupported part type %q", part.Type)
		}
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("no valid content provided")
	}

	temp := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response: %w", ErrEmptyResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no parts in candidate content: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
