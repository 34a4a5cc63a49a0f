package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// SchemaFor derives a JSON schema map from a typed argument struct using
// its json/jsonschema struct tags. Tools with typed argument structs call
// this once at registration time rather than hand-writing a schema map.
func SchemaFor[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(asMap, "$schema")
	delete(asMap, "$id")
	return asMap
}

// Decode converts a tool call's untyped argument map into a typed struct
// using its json tags, with weak typing (a JSON number decodes into an int
// field). It does not check the arguments against a schema.
func Decode[T any](args map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return out, fmt.Errorf("tool: building argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return out, fmt.Errorf("tool: decoding arguments: %w", err)
	}
	return out, nil
}
