package tool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cexll/mcpbridge/pkg/model"
)

func fnTool(name string) model.Tool {
	return model.Tool{Type: model.ToolTypeFunction, Function: model.FunctionSpec{Name: name}}
}

func TestRegistryReplaceDoesNotMerge(t *testing.T) {
	r := NewRegistry(fnTool("list_files"), fnTool("fetch_data"))
	require.Equal(t, []string{"list_files", "fetch_data"}, r.Names())

	r.Replace([]model.Tool{fnTool("weather")})
	require.Equal(t, []string{"weather"}, r.Names())
	_, ok := r.Lookup("list_files")
	require.False(t, ok)

	r.Replace(nil)
	require.Equal(t, 0, r.Len())
}

func TestRegistryLookupExactName(t *testing.T) {
	r := NewRegistry(fnTool("list_files"), fnTool("list_files"), fnTool("echo"))
	require.Equal(t, 2, r.Len())

	got, ok := r.Lookup("list_files")
	require.True(t, ok)
	require.Equal(t, "list_files", got.Function.Name)

	_, ok = r.Lookup("List_Files")
	require.False(t, ok)
}

func TestRegistryListIsSnapshot(t *testing.T) {
	r := NewRegistry(fnTool("a"))
	list := r.List()
	list[0].Function.Name = "mutated"
	require.Equal(t, []string{"a"}, r.Names())
}
