// Package tool defines the capability abstraction agents invoke: a named,
// schema-described unit of work the dispatcher executes on the model's
// behalf (spec §4.2).
package tool

import "context"

// Tool is a callable capability exposed to the LLM. Name uniquely
// identifies it within a dispatcher; Schema declares the JSON schema of
// its arguments for LLM function-calling exposure; the dispatcher does not
// validate call arguments against it.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Result is the outcome of one Execute call.
type Result struct {
	Success bool
	Output  string
}

// Func adapts a plain function, with an optional schema map, to the Tool
// interface; the built-in control tools and the tests are written with it.
type Func struct {
	NameField        string
	DescriptionField string
	SchemaField      map[string]any
	ExecFunc         func(ctx context.Context, args map[string]any) (Result, error)
}

func (f Func) Name() string          { return f.NameField }
func (f Func) Description() string   { return f.DescriptionField }
func (f Func) Schema() map[string]any { return f.SchemaField }

func (f Func) Execute(ctx context.Context, args map[string]any) (Result, error) {
	return f.ExecFunc(ctx, args)
}
