package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/genai"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// GeminiConfig configures the Gemini-backed gateway, a second concrete
// Gateway implementation demonstrating the transport boundary of spec §6
// is swappable.
type GeminiConfig struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

// GeminiFromEnv builds a config from GEMINI_API_KEY.
func GeminiFromEnv(model string) GeminiConfig {
	return GeminiConfig{APIKey: os.Getenv("GEMINI_API_KEY"), Model: model}
}

// GeminiGateway implements Gateway over google.golang.org/genai.
type GeminiGateway struct {
	cfg    GeminiConfig
	client *genai.Client
	log    *slog.Logger
}

// NewGeminiGateway constructs a Gemini gateway client.
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &TransportError{Retry: Terminal, Err: err}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGateway{cfg: cfg, client: client, log: logger}, nil
}

func toGeminiContents(msgs []message.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			continue // carried separately as SystemInstruction
		}
		role := "user"
		if m.Role == message.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return out
}

func systemInstruction(msgs []message.Message) *genai.Content {
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			return &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(m.Content)}}
		}
	}
	return nil
}

func toGeminiTools(defs []ToolDefinition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schemaFromMap(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// schemaFromMap is a best-effort conversion of a JSON-Schema map into
// genai's typed Schema, covering the "object with properties" shape every
// tool in this codebase declares.
func schemaFromMap(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{Type: genai.TypeObject}
	props, _ := m["properties"].(map[string]any)
	if len(props) > 0 {
		s.Properties = map[string]*genai.Schema{}
		for name, raw := range props {
			pm, _ := raw.(map[string]any)
			s.Properties[name] = &genai.Schema{
				Type:        geminiType(pm["type"]),
				Description: fmt.Sprint(pm["description"]),
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	}
	return s
}

func geminiType(t any) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Chat sends one request to the Gemini API, retrying failed calls per
// DefaultRetryPolicy.
func (g *GeminiGateway) Chat(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{
		Tools:             toGeminiTools(req.Tools),
		SystemInstruction: systemInstruction(req.Messages),
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}

	resp, err := withRetry(ctx, DefaultRetryPolicy(), func(attempt int) (*genai.GenerateContentResponse, Retryability, error) {
		r, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, toGeminiContents(req.Messages), cfg)
		if err != nil {
			return nil, Retryable, &TransportError{Retry: Retryable, Err: err}
		}
		return r, Terminal, nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, &ProtocolError{Message: "gemini returned no candidates"}
	}

	out := &Response{FinishReason: FinishStop}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
			out.FinishReason = FinishToolCalls
		}
	}
	if resp.UsageMetadata != nil {
		out.Tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// ChatStream streams a Gemini response. Each function-call part arrives
// whole and is emitted as one tool_call delta as soon as it is received;
// no fragment aggregation is performed.
func (g *GeminiGateway) ChatStream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	cfg := &genai.GenerateContentConfig{
		Tools:             toGeminiTools(req.Tools),
		SystemInstruction: systemInstruction(req.Messages),
	}

	out := make(chan StreamDelta, 64)
	go func() {
		defer close(out)
		totalTokens := 0
		for result, err := range g.client.Models.GenerateContentStream(ctx, g.cfg.Model, toGeminiContents(req.Messages), cfg) {
			if err != nil {
				out <- StreamDelta{Type: "error", Err: &TransportError{Retry: Retryable, Err: err}}
				return
			}
			if len(result.Candidates) == 0 {
				continue
			}
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					select {
					case out <- StreamDelta{Type: "token", Text: part.Text}:
					case <-ctx.Done():
						return
					}
				}
				if part.FunctionCall != nil {
					select {
					case out <- StreamDelta{Type: "tool_call", ToolCall: &message.ToolCall{
						ID: part.FunctionCall.Name, Name: part.FunctionCall.Name, Arguments: part.FunctionCall.Args,
					}}:
					case <-ctx.Done():
						return
					}
				}
			}
			if result.UsageMetadata != nil {
				totalTokens = int(result.UsageMetadata.TotalTokenCount)
			}
		}
		out <- StreamDelta{Type: "done", Tokens: totalTokens}
	}()
	return out, nil
}
