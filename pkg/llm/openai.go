package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kairoslabs/agentcore/pkg/message"
)

// OpenAIConfig configures the OpenAI-compatible gateway (spec §6: bearer
// credential from the environment, configurable base URL).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // defaults to https://api.openai.com/v1
	Model       string
	Timeout     time.Duration
	RetryPolicy RetryPolicy
	Logger      *slog.Logger
}

// OpenAIFromEnv builds a config from OPENAI_API_KEY / OPENAI_BASE_URL
// (spec §6's collaborator contract), with the given model.
func OpenAIFromEnv(model string) OpenAIConfig {
	base := os.Getenv("OPENAI_BASE_URL")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return OpenAIConfig{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     base,
		Model:       model,
		Timeout:     60 * time.Second,
		RetryPolicy: DefaultRetryPolicy(),
	}
}

// OpenAIGateway implements Gateway over an OpenAI-compatible
// /chat/completions endpoint.
type OpenAIGateway struct {
	cfg    OpenAIConfig
	client *http.Client
	log    *slog.Logger
}

// NewOpenAIGateway constructs a gateway from the given configuration.
func NewOpenAIGateway(cfg OpenAIConfig) *OpenAIGateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAIGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolCallFunc `json:"function"`
}

type chatToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Tools          []chatTool      `json:"tools,omitempty"`
	ToolChoice     string          `json:"tool_choice,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict,omitempty"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func toChatMessages(msgs []message.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := chatMessage{Content: m.Content}
		switch m.Role {
		case message.RoleSystem:
			cm.Role = "system"
		case message.RoleUser:
			cm.Role = "user"
		case message.RoleAssistant:
			cm.Role = "assistant"
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: chatToolCallFunc{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
		case message.RoleToolResult:
			cm.Role = "tool"
			cm.ToolCallID = m.ToolCallID
		}
		out = append(out, cm)
	}
	return out
}

func toChatTools(defs []ToolDefinition) []chatTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]chatTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func toResponseFormat(rf *ResponseFormat) *responseFormat {
	if rf == nil {
		return nil
	}
	switch rf.Kind {
	case "json_object":
		return &responseFormat{Type: "json_object"}
	case "json_schema":
		return &responseFormat{Type: "json_schema", JSONSchema: &jsonSchema{
			Name: rf.Name, Strict: rf.Strict, Schema: rf.Schema,
		}}
	default:
		return &responseFormat{Type: "text"}
	}
}

func (g *OpenAIGateway) buildRequest(req Request, stream bool) chatRequest {
	return chatRequest{
		Model:          g.cfg.Model,
		Messages:       toChatMessages(req.Messages),
		Tools:          toChatTools(req.Tools),
		ToolChoice:     req.ToolChoice,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		Stream:         stream,
		ResponseFormat: toResponseFormat(req.ResponseFormat),
	}
}

func (g *OpenAIGateway) doHTTP(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Retry: Terminal, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Retry: Retryable, Err: err}
	}
	return resp, nil
}

// Chat sends one chat request, retrying transient transport failures per
// the configured RetryPolicy.
func (g *OpenAIGateway) Chat(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(g.buildRequest(req, false))
	if err != nil {
		return nil, &ProtocolError{Message: "failed to encode request", Err: err}
	}

	return withRetry(ctx, g.cfg.RetryPolicy, func(attempt int) (*Response, Retryability, error) {
		g.log.Debug("llm chat attempt", "attempt", attempt, "model", g.cfg.Model)

		resp, err := g.doHTTP(ctx, body)
		if err != nil {
			var te *TransportError
			if errAs(err, &te) {
				return nil, te.Retry, err
			}
			return nil, Retryable, err
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			retry := Classify(resp.StatusCode, false, false)
			return nil, retry, &TransportError{StatusCode: resp.StatusCode, Retry: retry, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))}
		}

		var cr chatResponse
		if err := json.Unmarshal(raw, &cr); err != nil || len(cr.Choices) == 0 {
			return nil, Retryable, &ProtocolError{Message: "malformed or empty chat completion response", Err: err}
		}

		choice := cr.Choices[0]
		out := &Response{
			Content:      choice.Message.Content,
			FinishReason: finishReasonFrom(choice.FinishReason),
			Tokens:       cr.Usage.TotalTokens,
		}
		for _, tc := range choice.Message.ToolCalls {
			var args map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			id := tc.ID
			if id == "" {
				id = uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
		}
		return out, Terminal, nil
	})
}

func finishReasonFrom(s string) FinishReason {
	switch s {
	case "tool_calls":
		return FinishToolCalls
	case "length":
		return FinishLength
	default:
		return FinishStop
	}
}

// errAs is a small shim so generic retry code doesn't need errors.As'
// type-parameter dance inlined everywhere.
func errAs(err error, target **TransportError) bool {
	te, ok := err.(*TransportError)
	if !ok {
		return false
	}
	*target = te
	return true
}

// ChatStream streams the chat completion, decoding server-sent-event
// frames incrementally (spec §4.7 streaming decode).
func (g *OpenAIGateway) ChatStream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	body, err := json.Marshal(g.buildRequest(req, true))
	if err != nil {
		return nil, &ProtocolError{Message: "failed to encode request", Err: err}
	}

	resp, err := g.doHTTP(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		retry := Classify(resp.StatusCode, false, false)
		return nil, &TransportError{StatusCode: resp.StatusCode, Retry: retry, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))}
	}

	out := make(chan StreamDelta, 64)
	go g.decodeSSE(ctx, resp.Body, out)
	return out, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// pendingCall accumulates one tool call's argument fragments across
// multiple SSE frames, keyed by its index in the delta array.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

func (g *OpenAIGateway) decodeSSE(ctx context.Context, body io.ReadCloser, out chan<- StreamDelta) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	pending := map[int]*pendingCall{}
	order := []int{}
	totalTokens := 0

	emit := func(d StreamDelta) bool {
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	flush := func() {
		for _, idx := range order {
			pc := pending[idx]
			var args map[string]any
			_ = json.Unmarshal([]byte(pc.args.String()), &args)
			if !emit(StreamDelta{Type: "tool_call", ToolCall: &message.ToolCall{ID: pc.id, Name: pc.name, Arguments: args}}) {
				return
			}
		}
		emit(StreamDelta{Type: "done", Tokens: totalTokens})
	}

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			flush()
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			if !emit(StreamDelta{Type: "token", Text: delta.Content}) {
				return
			}
		}
		for _, tc := range delta.ToolCalls {
			pc, ok := pending[tc.Index]
			if !ok {
				pc = &pendingCall{}
				pending[tc.Index] = pc
				order = append(order, tc.Index)
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			pc.args.WriteString(tc.Function.Arguments)
		}
		if chunk.Choices[0].FinishReason != "" {
			// Some providers send [DONE] after this; others don't. Flush here
			// defensively in case [DONE] never arrives.
			flush()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		emit(StreamDelta{Type: "error", Err: &TransportError{Retry: Retryable, Err: err}})
	}
}
