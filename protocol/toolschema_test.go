package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var weatherTool = Tool{
	Name:        "get_weather",
	Description: "Fetch the current weather for a location",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"location": {"type": "string"},
			"unit": {"type": "string", "enum": ["celsius", "fahrenheit"]}
		},
		"required": ["location"]
	}`),
}

func TestValidateTools(t *testing.T) {
	require.NoError(t, ValidateTools([]Tool{weatherTool}))

	err := ValidateTools([]Tool{{Description: "no name", Parameters: json.RawMessage(`{}`)}})
	require.ErrorContains(t, err, "name is required")

	err = ValidateTools([]Tool{{Name: "broken"}})
	require.ErrorContains(t, err, "parameters schema is required")

	err = ValidateTools([]Tool{{Name: "broken", Parameters: json.RawMessage(`{not json`)}})
	require.ErrorContains(t, err, "not valid JSON")

	err = ValidateTools([]Tool{{Name: "broken", Parameters: json.RawMessage(`{"type":"nonsense"}`)}})
	require.ErrorContains(t, err, "invalid parameters schema")
}

func TestValidateToolArgs(t *testing.T) {
	require.NoError(t, ValidateToolArgs(weatherTool, json.RawMessage(`{"location":"Paris","unit":"celsius"}`)))

	err := ValidateToolArgs(weatherTool, json.RawMessage(`{"unit":"celsius"}`))
	require.ErrorContains(t, err, "do not match schema")

	err = ValidateToolArgs(weatherTool, json.RawMessage(`{"location":"Paris","unit":"kelvin"}`))
	require.ErrorContains(t, err, "do not match schema")

	err = ValidateToolArgs(weatherTool, json.RawMessage(`not json`))
	require.ErrorContains(t, err, "arguments are not valid JSON")
}
