package ollama

import (
	"strings"
	"time"
)

type modelOptions struct {
	// Options is forwarded verbatim as the request "options" object
	// (temperature, num_ctx, seed, ...).
	Options   map[string]any
	KeepAlive *time.Duration
	Format    string
}

func parseModelOptions(extra map[string]any) modelOptions {
	var opts modelOptions
	for key, val := range extra {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "keep_alive":
			if d, ok := toDuration(val); ok {
				opts.KeepAlive = &d
			}
		case "format":
			if s, ok := val.(string); ok {
				opts.Format = formatValue(s)
			}
		default:
			if opts.Options == nil {
				opts.Options = map[string]any{}
			}
			opts.Options[key] = val
		}
	}
	return opts
}

func toDuration(val any) (time.Duration, bool) {
	switch v := val.(type) {
	case time.Duration:
		return v, true
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		return d, err == nil
	case int:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	}
	return 0, false
}

// formatValue turns the shorthand "json" into its quoted JSON form; anything
// else is assumed to already be a JSON schema document.
func formatValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.EqualFold(s, "json") {
		return `"json"`
	}
	return s
}
