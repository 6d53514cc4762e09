package tools

import (
	"fmt"
	"sort"

	"github.com/amberloop/orca/pkg/registry"
)

// ToolEntry is what the registry actually stores: the tool plus whether it
// is a control tool (always authorized regardless of an agent's
// authorized_tools whitelist).
type ToolEntry struct {
	Tool    Tool
	Control bool
	Name    string
}

// ToolRegistryError wraps a registry failure with the component/action
// that produced it.
type ToolRegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ToolRegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *ToolRegistryError) Unwrap() error { return e.Err }

func newToolRegistryError(action, message string, err error) *ToolRegistryError {
	return &ToolRegistryError{Component: "ToolRegistry", Action: action, Message: message, Err: err}
}

// ToolRegistry holds every tool available to the system. Re-registering an
// existing name logs a warning and overwrites rather than erroring, which
// is friendlier to hot-reloading tool definitions than a hard error would
// be.
type ToolRegistry struct {
	*registry.BaseRegistry[ToolEntry]
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		BaseRegistry: registry.NewBaseRegistry[ToolEntry](registry.WarnOnDuplicate[ToolEntry]()),
	}
}

// RegisterTool adds a regular (non-control) tool to the registry.
func (r *ToolRegistry) RegisterTool(t Tool) error {
	name := t.GetName()
	if name == "" {
		return newToolRegistryError("RegisterTool", "tool name cannot be empty", nil)
	}
	if err := r.Register(name, ToolEntry{Tool: t, Name: name}); err != nil {
		return newToolRegistryError("RegisterTool", fmt.Sprintf("failed to register tool %s", name), err)
	}
	return nil
}

// RegisterControlTool adds a control tool (task_success, task_error,
// tasks_completed): these bypass an agent's authorized_tools whitelist.
func (r *ToolRegistry) RegisterControlTool(t Tool) error {
	name := t.GetName()
	if name == "" {
		return newToolRegistryError("RegisterControlTool", "tool name cannot be empty", nil)
	}
	if err := r.Register(name, ToolEntry{Tool: t, Name: name, Control: true}); err != nil {
		return newToolRegistryError("RegisterControlTool", fmt.Sprintf("failed to register control tool %s", name), err)
	}
	return nil
}

// GetTool returns the named tool, or an error if it isn't registered.
func (r *ToolRegistry) GetTool(name string) (Tool, error) {
	entry, exists := r.Get(name)
	if !exists {
		return nil, newToolRegistryError("GetTool", fmt.Sprintf("tool %s not found", name), nil)
	}
	return entry.Tool, nil
}

// IsControlTool reports whether name is registered as a control tool.
func (r *ToolRegistry) IsControlTool(name string) bool {
	entry, exists := r.Get(name)
	return exists && entry.Control
}

// ListTools returns every tool's catalog entry, sorted by name for
// deterministic prompt rendering.
func (r *ToolRegistry) ListTools() []ToolInfo {
	entries := r.List()
	infos := make([]ToolInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, e.Tool.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ListToolsFiltered returns catalog entries matching category (empty
// matches any), excluding dangerous tools unless includeDangerous is
// set.
func (r *ToolRegistry) ListToolsFiltered(category string, includeDangerous bool) []ToolInfo {
	all := r.ListTools()
	out := make([]ToolInfo, 0, len(all))
	for _, info := range all {
		if category != "" && info.Category != category {
			continue
		}
		if info.Dangerous && !includeDangerous {
			continue
		}
		out = append(out, info)
	}
	return out
}

// ListAuthorizedTools filters ListTools down to names in authorized
// (control tools always pass), or returns everything when authorized is
// empty (the "all tools permitted" rule).
func (r *ToolRegistry) ListAuthorizedTools(authorized map[string]struct{}) []ToolInfo {
	all := r.ListTools()
	if len(authorized) == 0 {
		return all
	}
	out := make([]ToolInfo, 0, len(all))
	for _, info := range all {
		if r.IsControlTool(info.Name) {
			out = append(out, info)
			continue
		}
		if _, ok := authorized[info.Name]; ok {
			out = append(out, info)
		}
	}
	return out
}
