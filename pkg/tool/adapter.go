package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
)

// ErrMalformedDescriptor marks a server tool declaration that cannot be
// advertised to the model.
var ErrMalformedDescriptor = errors.New("tool: malformed descriptor")

// Adapter converts server tool descriptors into model tool definitions.
type Adapter struct {
	Logger *log.Logger
}

// Adapt converts descriptors with the default logger.
func Adapt(descriptors []adapter.ToolDescriptor) []model.Tool {
	return Adapter{}.Adapt(descriptors)
}

// Adapt converts every well-formed descriptor, preserving order. Malformed
// entries are logged with the raw input and skipped; Adapt never fails.
func (a Adapter) Adapt(descriptors []adapter.ToolDescriptor) []model.Tool {
	tools := make([]model.Tool, 0, len(descriptors))
	var problems []error
	for i, desc := range descriptors {
		tool, err := adaptDescriptor(desc)
		if err != nil {
			problems = append(problems, fmt.Errorf("descriptor %d: %w", i, err))
			continue
		}
		tools = append(tools, tool)
	}
	if len(problems) > 0 {
		logger := a.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("tool: error parsing tools: %v", errors.Join(problems...))
		logger.Printf("tool: raw tools data: %s", rawDescriptors(descriptors))
	}
	return tools
}

func adaptDescriptor(desc adapter.ToolDescriptor) (model.Tool, error) {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return model.Tool{}, fmt.Errorf("%w: name is empty", ErrMalformedDescriptor)
	}
	params, err := decodeParameters(desc.Schema)
	if err != nil {
		return model.Tool{}, fmt.Errorf("%w: %s: input schema: %v", ErrMalformedDescriptor, name, err)
	}
	return model.Tool{
		Type: model.ToolTypeFunction,
		Function: model.FunctionSpec{
			Name:        name,
			Description: desc.Description,
			Parameters:  params,
		},
	}, nil
}

func decodeParameters(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func rawDescriptors(descriptors []adapter.ToolDescriptor) string {
	data, err := json.Marshal(descriptors)
	if err != nil {
		return fmt.Sprintf("%+v", descriptors)
	}
	return string(data)
}
