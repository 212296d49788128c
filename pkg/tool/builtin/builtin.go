// Package toolbuiltin holds the demo tools served by the example MCP server.
package toolbuiltin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Handler runs a tool on its raw JSON arguments and returns the text result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Definition is a tool ready to be registered on a server.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Options configure the demo tool set.
type Options struct {
	// Root resolves relative list_files paths. Empty means the process
	// working directory.
	Root string
}

// All returns every demo tool.
func All(opts Options) []Definition {
	return []Definition{
		NewListFiles(opts.Root),
		NewFetchData(),
	}
}

func schemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("toolbuiltin: reflect schema: %v", err))
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(fmt.Sprintf("toolbuiltin: decode schema: %v", err))
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func requireString(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New(field + " cannot be empty")
	}
	return trimmed, nil
}
