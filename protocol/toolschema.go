package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateTools compiles the parameter schema of every tool in the list and
// reports the first tool whose schema is missing, not valid JSON, or not a
// compilable JSON schema. Callers validate tool definitions once at run
// start rather than discovering broken schemas mid-stream.
func ValidateTools(tools []Tool) error {
	for i, tool := range tools {
		if tool.Name == "" {
			return fmt.Errorf("tools[%d]: name is required", i)
		}
		if len(tool.Parameters) == 0 {
			return fmt.Errorf("tool %q: parameters schema is required", tool.Name)
		}
		var doc any
		if err := json.Unmarshal(tool.Parameters, &doc); err != nil {
			return fmt.Errorf("tool %q: parameters are not valid JSON: %w", tool.Name, err)
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema.json", doc); err != nil {
			return fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		if _, err := c.Compile("schema.json"); err != nil {
			return fmt.Errorf("tool %q: invalid parameters schema: %w", tool.Name, err)
		}
	}
	return nil
}

// ValidateToolArgs validates a JSON-encoded argument object against the
// tool's compiled parameter schema.
func ValidateToolArgs(tool Tool, args json.RawMessage) error {
	var schemaDoc any
	if err := json.Unmarshal(tool.Parameters, &schemaDoc); err != nil {
		return fmt.Errorf("tool %q: parameters are not valid JSON: %w", tool.Name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("tool %q: %w", tool.Name, err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("tool %q: invalid parameters schema: %w", tool.Name, err)
	}
	var argsDoc any
	if err := json.Unmarshal(args, &argsDoc); err != nil {
		return fmt.Errorf("tool %q: arguments are not valid JSON: %w", tool.Name, err)
	}
	if err := schema.Validate(argsDoc); err != nil {
		return fmt.Errorf("tool %q: arguments do not match schema: %w", tool.Name, err)
	}
	return nil
}
