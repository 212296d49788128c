package toolbuiltin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FetchDataInput are the fetch_data arguments.
type FetchDataInput struct {
	URL string `json:"url" jsonschema:"required,description=The URL to fetch data from"`
}

// NewFetchData is a placeholder tool: it validates the URL and echoes it
// back without any network access.
func NewFetchData() Definition {
	return Definition{
		Name:        "fetch_data",
		Description: "Fetch data from a given URL.",
		InputSchema: schemaFor[FetchDataInput](),
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var in FetchDataInput
			if err := decodeArgs(raw, &in); err != nil {
				return "", err
			}
			target, err := requireString("url", in.URL)
			if err != nil {
				return "", fmt.Errorf("Error fetching data: %w", err)
			}
			if _, err := url.ParseRequestURI(target); err != nil {
				return "", fmt.Errorf("Error fetching data: %w", err)
			}
			return "Data fetched from URL: " + target, ctx.Err()
		},
	}
}
