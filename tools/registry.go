package tools

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/llms"
)

// Registry holds the fixed set of tools an agent advertises to the model.
// Registration happens once at startup; lookups are case-insensitive.
type Registry struct {
	mu     sync.RWMutex
	tools  []ITool
	names  []string
	byName map[string]ITool
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool),
	}
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry.
// Nil tools, empty names and duplicate names are rejected.
func (r *Registry) Register(tool ITool) error {
	if tool == nil {
		return errors.New("tool must not be nil")
	}
	name := strings.TrimSpace(tool.Name())
	if name == "" {
		return errors.New("tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// use lowercase for the key
	key := strings.ToLower(name)
	if r.byName[key] != nil {
		return errors.Errorf("tool already registered: %s", name)
	}
	r.byName[key] = tool
	r.names = append(r.names, name)
	r.tools = append(r.tools, tool)
	return nil
}

// Lookup returns the tool with the given name, matched case-insensitively.
func (r *Registry) Lookup(name string) (ITool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[strings.ToLower(name)]
	return tool, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tools)
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Schemas returns the function definitions to advertise to the model,
// in registration order.
func (r *Registry) Schemas() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]llms.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		res = append(res, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return res
}

// Descriptions returns the tool names and descriptions as a fenced JSON
// block, to be used in prompts.
func (r *Registry) Descriptions() string {
	return GetDescriptions(r.Tools()...)
}
