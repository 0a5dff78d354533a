package mcpserver

import "fmt"

// ToolHandler executes one named tool and returns its result payload.
type ToolHandler func(agentID string, params map[string]interface{}) (interface{}, error)

// ToolDefinition describes one entry in the tool surface (§6).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParameterDef
	Handler     ToolHandler
}

// ParameterDef describes one named argument of a tool.
type ParameterDef struct {
	Type        string
	Description string
	Required    bool
}

// ToolRegistry holds every registered ToolDefinition by name.
type ToolRegistry struct {
	tools map[string]ToolDefinition
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolDefinition)}
}

func (r *ToolRegistry) Register(tool ToolDefinition) {
	r.tools[tool.Name] = tool
}

func (r *ToolRegistry) Get(name string) (ToolDefinition, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List renders every tool's MCP tools/list shape.
func (r *ToolRegistry) List() []map[string]interface{} {
	var tools []map[string]interface{}
	for _, tool := range r.tools {
		params := make(map[string]interface{})
		required := []string{}

		for name, def := range tool.Parameters {
			params[name] = map[string]interface{}{
				"type":        def.Type,
				"description": def.Description,
			}
			if def.Required {
				required = append(required, name)
			}
		}

		tools = append(tools, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": params,
				"required":   required,
			},
		})
	}
	return tools
}

func (r *ToolRegistry) Execute(name string, agentID string, params map[string]interface{}) (interface{}, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("mcpserver: unknown tool %q", name)
	}
	return tool.Handler(agentID, params)
}
