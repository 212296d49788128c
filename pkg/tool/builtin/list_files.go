package toolbuiltin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListFilesInput are the list_files arguments.
type ListFilesInput struct {
	Directory string `json:"directory" jsonschema:"required,description=Path to the directory to list files from"`
}

// NewListFiles lists the entries of a directory, one name per line.
func NewListFiles(root string) Definition {
	return Definition{
		Name:        "list_files",
		Description: "List files in a directory.",
		InputSchema: schemaFor[ListFilesInput](),
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var in ListFilesInput
			if err := decodeArgs(raw, &in); err != nil {
				return "", err
			}
			return listFiles(ctx, root, in.Directory)
		},
	}
}

func listFiles(ctx context.Context, root, directory string) (string, error) {
	dir, err := requireString("directory", directory)
	if err != nil {
		return "", fmt.Errorf("Error listing files: %w", err)
	}
	if !filepath.IsAbs(dir) && root != "" {
		dir = filepath.Join(root, dir)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("Error listing files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return strings.Join(names, "\n"), nil
}
