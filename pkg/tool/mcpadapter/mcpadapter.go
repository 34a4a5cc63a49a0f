// Package mcpadapter exposes tools hosted on an external MCP (Model
// Context Protocol) server as local tool.Tool implementations. The
// adapter is opaque to the dispatcher: once wrapped, an MCP tool is
// indistinguishable from any in-process tool (spec §6's adapter
// protocol).
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kairoslabs/agentcore/pkg/tool"
)

// Config describes how to reach an external stdio-transport MCP server.
type Config struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Connection owns one MCP client connection and lazily discovers its
// tools on first Tools() call.
type Connection struct {
	cfg Config

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// New creates a connection that has not yet been established.
func New(cfg Config) *Connection {
	return &Connection{cfg: cfg}
}

// Tools connects (if not already connected) and returns every remote
// tool wrapped as a local tool.Tool.
func (c *Connection) Tools(ctx context.Context) ([]tool.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return nil, fmt.Errorf("mcpadapter: connect: %w", err)
		}
	}

	listResp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpadapter: list tools: %w", err)
	}

	tools := make([]tool.Tool, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, &remoteTool{
			conn:   c,
			name:   t.Name,
			desc:   t.Description,
			schema: convertSchema(t.InputSchema),
		})
	}
	return tools, nil
}

func (c *Connection) connectLocked(ctx context.Context) error {
	env := make([]string, 0, len(c.cfg.Env))
	for k, v := range c.cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(c.cfg.Command, env, c.cfg.Args...)
	if err != nil {
		return err
	}
	if err := mcpClient.Start(ctx); err != nil {
		return err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentcore", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return err
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

// Close shuts down the underlying MCP connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.connected = false
	return err
}

// remoteTool adapts one MCP tool to tool.Tool, forwarding Execute over
// the shared connection's transport.
type remoteTool struct {
	conn   *Connection
	name   string
	desc   string
	schema map[string]any
}

func (r *remoteTool) Name() string           { return r.name }
func (r *remoteTool) Description() string    { return r.desc }
func (r *remoteTool) Schema() map[string]any { return r.schema }

func (r *remoteTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	r.conn.mu.Lock()
	c := r.conn.client
	r.conn.mu.Unlock()
	if c == nil {
		return tool.Result{}, fmt.Errorf("mcpadapter: not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = r.name
	req.Params.Arguments = args

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return tool.Result{}, fmt.Errorf("mcpadapter: call %q: %w", r.name, err)
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	output := ""
	for i, t := range texts {
		if i > 0 {
			output += "\n"
		}
		output += t
	}

	if resp.IsError {
		return tool.Result{Success: false, Output: output}, nil
	}
	return tool.Result{Success: true, Output: output}, nil
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object"}
	}
	return result
}
