package tool

import (
	"sync"

	"github.com/samber/lo"

	"github.com/cexll/mcpbridge/pkg/model"
)

// Registry is the ordered tool set currently advertised to the model.
// Replace swaps the whole set; entries are never merged across fetches.
type Registry struct {
	mu    sync.RWMutex
	tools []model.Tool
	index map[string]int
}

// NewRegistry creates a registry seeded with tools.
func NewRegistry(tools ...model.Tool) *Registry {
	r := &Registry{}
	r.Replace(tools)
	return r
}

// Replace installs tools as the complete tool set. Later duplicates of a
// name are dropped so lookups stay unambiguous.
func (r *Registry) Replace(tools []model.Tool) {
	uniq := lo.UniqBy(tools, func(t model.Tool) string { return t.Function.Name })
	index := make(map[string]int, len(uniq))
	for i, t := range uniq {
		index[t.Function.Name] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = uniq
	r.index = index
}

// Lookup finds a tool by exact name.
func (r *Registry) Lookup(name string) (model.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return model.Tool{}, false
	}
	return r.tools[i], true
}

// List produces a snapshot of the tool set in registration order.
func (r *Registry) List() []model.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Tool(nil), r.tools...)
}

// Names lists the registered tool names in order.
func (r *Registry) Names() []string {
	return lo.Map(r.List(), func(t model.Tool, _ int) string { return t.Function.Name })
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
